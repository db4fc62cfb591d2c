package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"mico/internal/core"
	"mico/internal/ledger"
)

func txn(desc string, cents int64, d time.Time) core.Transaction {
	return core.Transaction{
		Date:        d,
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Category:    "other",
		Status:      core.StatusCompleted,
	}
}

func TestTransactionRoundTripAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()

	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	id1, err := s.CreateTransaction(ctx, txn("older", 2550, d))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateTransaction(ctx, txn("newer", -1000, d.AddDate(0, 0, 3))); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, total, err := s.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Description != "newer" {
		t.Fatalf("expected date-descending order, got %+v", got)
	}
	if total != 1550 {
		t.Fatalf("total=%d, want 1550", total)
	}

	one, err := s.GetTransaction(ctx, id1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if one.Amount.Cents != 2550 {
		t.Fatalf("amount=%d, want 2550 (exact cents round-trip)", one.Amount.Cents)
	}
}

func TestPartialUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	id, err := s.CreateTransaction(ctx, txn("groceries", -4200, d))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = s.UpdateTransaction(ctx, id, []core.FieldUpdate{
		core.UpdateAmount(core.Money{Cents: -4300}),
		core.UpdateStatus(core.StatusPending),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetTransaction(ctx, id)
	if got.Amount.Cents != -4300 || got.Status != core.StatusPending {
		t.Fatalf("partial update lost fields: %+v", got)
	}
	if got.Description != "groceries" {
		t.Fatalf("untouched field changed: %q", got.Description)
	}

	if err := s.UpdateTransaction(ctx, "nope", []core.FieldUpdate{core.UpdateCategory("food")}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetTransaction(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEntityTypeIntegrity(t *testing.T) {
	ctx := context.Background()
	s := New()

	typeID, err := s.CreateEntityType(ctx, core.EntityType{UserID: "u1", Name: "Bank Account"})
	if err != nil {
		t.Fatalf("create type: %v", err)
	}
	entID, err := s.CreateEntity(ctx, core.Entity{UserID: "u1", Type: typeID, Name: "Checking"})
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}

	if err := s.DeleteEntityType(ctx, typeID, "u1"); !errors.Is(err, core.ErrEntityTypeInUse) {
		t.Fatalf("expected ErrEntityTypeInUse, got %v", err)
	}

	if err := s.DeleteEntity(ctx, entID, "u1"); err != nil {
		t.Fatalf("delete entity: %v", err)
	}
	if err := s.DeleteEntityType(ctx, typeID, "u1"); err != nil {
		t.Fatalf("delete type after entity removed: %v", err)
	}
}

func TestEntityUserScoping(t *testing.T) {
	ctx := context.Background()
	s := New()

	typeA, _ := s.CreateEntityType(ctx, core.EntityType{UserID: "alice", Name: "Card"})
	idA, err := s.CreateEntity(ctx, core.Entity{UserID: "alice", Type: typeA, Name: "Visa"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if got, _ := s.ListEntities(ctx, "bob"); len(got) != 0 {
		t.Fatalf("bob should see no entities, got %d", len(got))
	}
	if err := s.DeleteEntity(ctx, idA, "bob"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-user delete must fail, got %v", err)
	}
	name := "Mastercard"
	if err := s.UpdateEntity(ctx, idA, "bob", ledger.EntityChanges{Name: &name}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("cross-user update must fail, got %v", err)
	}

	got, _ := s.ListEntities(ctx, "alice")
	if len(got) != 1 || got[0].TypeName != "Card" {
		t.Fatalf("expected joined type name, got %+v", got)
	}
}
