package agent

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mico/internal/api"
	"mico/internal/core"
	micohttp "mico/internal/http"
	"mico/internal/ledger/memory"
)

func newTestAgent(t *testing.T) (*Agent, *memory.Store) {
	t.Helper()
	store := memory.New()
	srv := micohttp.NewServer(":0", store, nil)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	p := NewRulesParser()
	p.now = func() time.Time {
		return time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	}
	return New(api.New(ts.URL, ts.Client()), p), store
}

func TestAgentRecords(t *testing.T) {
	a, store := newTestAgent(t)

	answer, err := a.Handle(context.Background(), "spent 12.50 on groceries yesterday")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer, "Recorded") {
		t.Fatalf("answer=%q", answer)
	}

	txns, _, _ := store.ListTransactions(context.Background())
	if len(txns) != 1 {
		t.Fatalf("len=%d, want 1", len(txns))
	}
	if txns[0].Amount.Cents != -1250 || txns[0].Category != "food" {
		t.Fatalf("stored: %+v", txns[0])
	}
	if txns[0].Date.Format("2006-01-02") != "2024-06-14" {
		t.Fatalf("date=%v", txns[0].Date)
	}
}

func TestAgentQueries(t *testing.T) {
	a, store := newTestAgent(t)
	store.Seed(
		core.Transaction{ID: "t1", Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Description: "groceries", Amount: core.Money{Cents: -12550}, Category: "food", Status: core.StatusCompleted},
		core.Transaction{ID: "t2", Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Description: "salary", Amount: core.Money{Cents: 350000}, Category: "income", Status: core.StatusCompleted},
	)

	answer, err := a.Handle(context.Background(), "how much did I spend on food?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer, "1 transactions") || !strings.Contains(answer, "food") {
		t.Fatalf("answer=%q", answer)
	}

	answer, err = a.Handle(context.Background(), "how much did I spend on entertainment?")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(answer, "No transactions") {
		t.Fatalf("answer=%q", answer)
	}
}

func TestAgentRejectsNonsense(t *testing.T) {
	a, _ := newTestAgent(t)

	if _, err := a.Handle(context.Background(), "bought some things"); err == nil {
		t.Fatal("expected parse failure without an amount")
	}
}
