package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mico/internal/core"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "mico.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTxn(desc string, cents int64, d time.Time) core.Transaction {
	return core.Transaction{
		Date:        d,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Category:    "other",
		Status:      core.StatusCompleted,
	}
}

func TestCreateAndReadBackExactCents(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	d := time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC)
	id, err := repo.CreateTransaction(ctx, testTxn("new shoes", 2550, d))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetTransaction(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount.Cents != 2550 {
		t.Fatalf("amount=%d, want 2550 (no drift)", got.Amount.Cents)
	}
	if !got.Date.Equal(d) {
		t.Fatalf("date=%v, want %v", got.Date, d)
	}
}

func TestListOrderAndGrandTotal(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	for i, tc := range []struct {
		desc  string
		cents int64
		day   int
	}{
		{"groceries", -12550, 5},
		{"salary", 350000, 10},
		{"bus pass", -8525, 2},
	} {
		if _, err := repo.CreateTransaction(ctx, testTxn(tc.desc, tc.cents, base.AddDate(0, 0, tc.day))); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	got, total, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
	if got[0].Description != "salary" || got[2].Description != "bus pass" {
		t.Fatalf("expected date-descending order, got %q..%q", got[0].Description, got[2].Description)
	}
	if total != 328925 {
		t.Fatalf("total=%d, want 328925", total)
	}
}

func TestSummarizeAgreesWithCore(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	base := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	seed := []core.Transaction{
		{Date: base.AddDate(0, 0, 5), Description: "a", Amount: core.Money{Cents: -12550}, Category: "food", Status: core.StatusCompleted},
		{Date: base.AddDate(0, 0, 10), Description: "b", Amount: core.Money{Cents: 350000}, Category: "income", Status: core.StatusCompleted},
		{Date: base.AddDate(0, 0, 20), Description: "c", Amount: core.Money{Cents: -8525}, Category: "transport", Status: core.StatusPending},
	}
	for _, tx := range seed {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	start := base.AddDate(0, 0, 5)
	end := base.AddDate(0, 0, 10)
	food := "food"
	missing := "nothing-here"
	filters := []core.QueryFilter{
		{},
		{Category: &food},
		{Category: &missing},
		{StartDate: &start, EndDate: &end},
		{StartDate: &start}, // lone bound: date predicate must be ignored
		{EndDate: &end},
		{StartDate: &start, EndDate: &end, Category: &food},
	}
	for _, f := range filters {
		want := core.Summarize(seed, f)
		got, err := repo.Summarize(ctx, f)
		if err != nil {
			t.Fatalf("summarize: %v", err)
		}
		if got.Count != want.Count {
			t.Fatalf("count=%d, want %d for %+v", got.Count, want.Count, f)
		}
		switch {
		case want.TotalAmount == nil:
			if got.TotalAmount != nil {
				t.Fatalf("total=%v, want nil for %+v", *got.TotalAmount, f)
			}
		case got.TotalAmount == nil || *got.TotalAmount != *want.TotalAmount:
			t.Fatalf("total=%v, want %d for %+v", got.TotalAmount, *want.TotalAmount, f)
		}
	}
}

func TestUpdateResetsSyncFlag(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	id, err := repo.CreateTransaction(ctx, testTxn("coffee", -450, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkSynced(ctx, id); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if pending, _ := repo.ListUnsynced(ctx, 10); len(pending) != 0 {
		t.Fatalf("expected no unsynced rows, got %d", len(pending))
	}

	err = repo.UpdateTransaction(ctx, id, []core.FieldUpdate{core.UpdateAmount(core.Money{Cents: -500})})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, err := repo.ListUnsynced(ctx, 10)
	if err != nil {
		t.Fatalf("list unsynced: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("update must reset the sync flag, got %+v", pending)
	}
	if pending[0].Amount.Cents != -500 {
		t.Fatalf("amount=%d, want -500", pending[0].Amount.Cents)
	}
}

func TestUpdateUnknownIDAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	err := repo.UpdateTransaction(ctx, "missing", []core.FieldUpdate{core.UpdateCategory("food")})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	id, _ := repo.CreateTransaction(ctx, testTxn("one-off", -100, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)))
	if err := repo.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEntityTypeIntegrity(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	typeID, err := repo.CreateEntityType(ctx, core.EntityType{UserID: "u1", Name: "Bank Account"})
	if err != nil {
		t.Fatalf("create type: %v", err)
	}
	entID, err := repo.CreateEntity(ctx, core.Entity{UserID: "u1", Type: typeID, Name: "Checking"})
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}

	if err := repo.DeleteEntityType(ctx, typeID, "u1"); !errors.Is(err, core.ErrEntityTypeInUse) {
		t.Fatalf("expected ErrEntityTypeInUse, got %v", err)
	}

	ents, err := repo.ListEntities(ctx, "u1")
	if err != nil {
		t.Fatalf("list entities: %v", err)
	}
	if len(ents) != 1 || ents[0].TypeName != "Bank Account" {
		t.Fatalf("expected joined type name, got %+v", ents)
	}

	if err := repo.DeleteEntity(ctx, entID, "u1"); err != nil {
		t.Fatalf("delete entity: %v", err)
	}
	if err := repo.DeleteEntityType(ctx, typeID, "u1"); err != nil {
		t.Fatalf("delete type: %v", err)
	}
}
