package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"mico/internal/core"
	micohttp "mico/internal/http"
	"mico/internal/ledger/memory"
)

func newTestClient(t *testing.T) (*Client, *memory.Store) {
	t.Helper()
	store := memory.New()
	srv := micohttp.NewServer(":0", store, nil)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return New(ts.URL, ts.Client()), store
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestClientRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for _, tx := range []core.Transaction{
		{Date: mustDate(t, "2024-01-05"), Description: "groceries", Amount: core.Money{Cents: -12550}, Category: "food", Status: core.StatusCompleted},
		{Date: mustDate(t, "2024-01-10"), Description: "salary", Amount: core.Money{Cents: 350000}, Category: "income", Status: core.StatusCompleted},
		{Date: mustDate(t, "2024-01-20"), Description: "bus pass", Amount: core.Money{Cents: -8525}, Category: "transport", Status: core.StatusPending},
	} {
		if err := c.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	txns, total, err := c.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("len=%d, want 3", len(txns))
	}
	if total != 328925 {
		t.Fatalf("total=%d, want 328925", total)
	}
	if txns[0].Description != "bus pass" {
		t.Fatalf("order: got %q first", txns[0].Description)
	}
	if txns[2].Amount.Cents != -12550 {
		t.Fatalf("cents mangled in transit: %d", txns[2].Amount.Cents)
	}
	if !txns[0].Date.Equal(mustDate(t, "2024-01-20")) {
		t.Fatalf("date mangled: %v", txns[0].Date)
	}
}

func TestClientUpdateAndDelete(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	if err := c.CreateTransaction(ctx, core.Transaction{
		Date: mustDate(t, "2024-03-01"), Description: "rent",
		Amount: core.Money{Cents: -95000}, Category: "housing", Status: core.StatusPending,
	}); err != nil {
		t.Fatal(err)
	}
	txns, _, err := c.ListTransactions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	id := txns[0].ID

	err = c.UpdateTransaction(ctx, id, []core.FieldUpdate{
		core.UpdateStatus(core.StatusCompleted),
		core.UpdateAmount(core.Money{Cents: -96000}),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	txns, _, _ = c.ListTransactions(ctx)
	if txns[0].Status != core.StatusCompleted || txns[0].Amount.Cents != -96000 {
		t.Fatalf("update not applied: %+v", txns[0])
	}
	if txns[0].Description != "rent" {
		t.Fatalf("partial update touched description: %q", txns[0].Description)
	}

	// An empty update list is a no-op that never reaches the wire.
	if err := c.UpdateTransaction(ctx, "whatever", nil); err != nil {
		t.Fatalf("empty update: %v", err)
	}

	if err := c.UpdateTransaction(ctx, "missing-id", []core.FieldUpdate{core.UpdateDescription("x")}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("unknown id: err=%v, want ErrNotFound", err)
	}

	if err := c.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	txns, _, _ = c.ListTransactions(ctx)
	if len(txns) != 0 {
		t.Fatalf("len=%d after delete", len(txns))
	}
}

func TestClientQuerySummary(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	for _, tx := range []core.Transaction{
		{Date: mustDate(t, "2024-01-05"), Description: "groceries", Amount: core.Money{Cents: -12550}, Category: "food", Status: core.StatusCompleted},
		{Date: mustDate(t, "2024-02-10"), Description: "salary", Amount: core.Money{Cents: 350000}, Category: "income", Status: core.StatusCompleted},
	} {
		if err := c.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	all, err := c.QuerySummary(ctx, core.QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if all.Count != 2 || all.TotalAmount == nil || *all.TotalAmount != 337450 {
		t.Fatalf("unfiltered: %+v", all)
	}

	cat := "food"
	food, err := c.QuerySummary(ctx, core.QueryFilter{Category: &cat})
	if err != nil {
		t.Fatal(err)
	}
	if food.Count != 1 || food.TotalAmount == nil || *food.TotalAmount != -12550 {
		t.Fatalf("category filter: %+v", food)
	}

	none := "does-not-exist"
	empty, err := c.QuerySummary(ctx, core.QueryFilter{Category: &none})
	if err != nil {
		t.Fatal(err)
	}
	if empty.Count != 0 || empty.TotalAmount != nil {
		t.Fatalf("empty match should carry nil total: %+v", empty)
	}

	// Only one bound set: the range is ignored server-side.
	start := mustDate(t, "2024-02-01")
	lone, err := c.QuerySummary(ctx, core.QueryFilter{StartDate: &start})
	if err != nil {
		t.Fatal(err)
	}
	if lone.Count != 2 {
		t.Fatalf("lone bound: count=%d, want 2", lone.Count)
	}
}

func TestClientValidationError(t *testing.T) {
	c, _ := newTestClient(t)

	err := c.CreateTransaction(context.Background(), core.Transaction{
		Date: mustDate(t, "2024-01-01"), Description: "", Amount: core.Money{Cents: 100},
		Category: "food", Status: core.StatusPending,
	})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err=%v, want *APIError", err)
	}
	if apiErr.Status != 422 || apiErr.Message == "" {
		t.Fatalf("apiErr=%+v", apiErr)
	}
}
