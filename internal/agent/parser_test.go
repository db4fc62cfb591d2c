package agent

import (
	"context"
	"testing"
	"time"
)

func fixedParser(t *testing.T) *RulesParser {
	t.Helper()
	p := NewRulesParser()
	p.now = func() time.Time {
		return time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)
	}
	return p
}

func TestParseRecord(t *testing.T) {
	p := fixedParser(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		text      string
		wantCents int64
		wantCat   string
		wantDate  string
	}{
		{
			name:      "simple spend",
			text:      "spent 12.50 on groceries",
			wantCents: -1250,
			wantCat:   "food",
			wantDate:  "2024-06-15",
		},
		{
			name:      "yesterday",
			text:      "paid 45 for a taxi yesterday",
			wantCents: -4500,
			wantCat:   "transport",
			wantDate:  "2024-06-14",
		},
		{
			name:      "explicit iso date",
			text:      "bought cinema tickets for 23.80 on 2024-05-01",
			wantCents: -2380,
			wantCat:   "entertainment",
			wantDate:  "2024-05-01",
		},
		{
			name:      "slash date",
			text:      "paid 9.99 for netflix on 01/05/2024",
			wantCents: -999,
			wantCat:   "entertainment",
			wantDate:  "2024-05-01",
		},
		{
			name:      "income flips sign",
			text:      "received my salary of 3500",
			wantCents: 350000,
			wantCat:   "income",
			wantDate:  "2024-06-15",
		},
		{
			name:      "currency symbol",
			text:      "spent €8.40 at the pharmacy",
			wantCents: -840,
			wantCat:   "health",
			wantDate:  "2024-06-15",
		},
		{
			name:      "no keyword falls back to other",
			text:      "spent 10 on mystery things",
			wantCents: -1000,
			wantCat:   "other",
			wantDate:  "2024-06-15",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := p.Parse(ctx, tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if req.Intent != IntentRecord {
				t.Fatalf("intent=%v, want record", req.Intent)
			}
			tx := req.Transaction
			if tx.Amount.Cents != tt.wantCents {
				t.Errorf("cents=%d, want %d", tx.Amount.Cents, tt.wantCents)
			}
			if tx.Category != tt.wantCat {
				t.Errorf("category=%q, want %q", tx.Category, tt.wantCat)
			}
			if got := tx.Date.Format("2006-01-02"); got != tt.wantDate {
				t.Errorf("date=%s, want %s", got, tt.wantDate)
			}
			if err := tx.Validate(); err != nil {
				t.Errorf("parsed transaction invalid: %v", err)
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	p := fixedParser(t)
	ctx := context.Background()

	t.Run("category query", func(t *testing.T) {
		req, err := p.Parse(ctx, "how much did I spend on food?")
		if err != nil {
			t.Fatal(err)
		}
		if req.Intent != IntentQuery {
			t.Fatalf("intent=%v, want query", req.Intent)
		}
		if req.Filter.Category == nil || *req.Filter.Category != "food" {
			t.Fatalf("category=%v", req.Filter.Category)
		}
		if req.Filter.HasDateRange() {
			t.Fatal("unexpected date range")
		}
	})

	t.Run("month query", func(t *testing.T) {
		req, err := p.Parse(ctx, "how much did I spend on transport in January?")
		if err != nil {
			t.Fatal(err)
		}
		if !req.Filter.HasDateRange() {
			t.Fatal("expected date range for named month")
		}
		if req.Filter.StartDate.Month() != time.January || req.Filter.StartDate.Year() != 2024 {
			t.Fatalf("start=%v", req.Filter.StartDate)
		}
		if req.Filter.EndDate.Month() != time.January {
			t.Fatalf("end=%v", req.Filter.EndDate)
		}
		if req.Filter.Category == nil || *req.Filter.Category != "transport" {
			t.Fatalf("category=%v", req.Filter.Category)
		}
	})

	t.Run("future month means last year", func(t *testing.T) {
		// Fixed now is June 2024; October has not happened yet.
		req, err := p.Parse(ctx, "total spending in October")
		if err != nil {
			t.Fatal(err)
		}
		if req.Filter.StartDate.Year() != 2023 {
			t.Fatalf("start year=%d, want 2023", req.Filter.StartDate.Year())
		}
	})

	t.Run("this month", func(t *testing.T) {
		req, err := p.Parse(ctx, "summary for this month")
		if err != nil {
			t.Fatal(err)
		}
		if !req.Filter.HasDateRange() {
			t.Fatal("expected date range")
		}
		if req.Filter.StartDate.Month() != time.June {
			t.Fatalf("start=%v", req.Filter.StartDate)
		}
	})
}

func TestParseRejects(t *testing.T) {
	p := fixedParser(t)
	ctx := context.Background()

	if _, err := p.Parse(ctx, "   "); err == nil {
		t.Error("empty input should fail")
	}
	if _, err := p.Parse(ctx, "bought some things"); err == nil {
		t.Error("record without amount should fail")
	}
}

func TestLLMResponseToRequest(t *testing.T) {
	t.Run("record", func(t *testing.T) {
		r := llmResponse{
			Intent: "record", Date: "2024-03-01", Description: "groceries",
			Amount: "-12.50", Category: "food",
		}
		req, err := r.toRequest()
		if err != nil {
			t.Fatal(err)
		}
		if req.Transaction.Amount.Cents != -1250 {
			t.Fatalf("cents=%d", req.Transaction.Amount.Cents)
		}
	})

	t.Run("query with range", func(t *testing.T) {
		r := llmResponse{Intent: "query", Category: "food", StartDate: "2024-01-01", EndDate: "2024-01-31"}
		req, err := r.toRequest()
		if err != nil {
			t.Fatal(err)
		}
		if !req.Filter.HasDateRange() || *req.Filter.Category != "food" {
			t.Fatalf("filter=%+v", req.Filter)
		}
	})

	t.Run("rejects bad payloads", func(t *testing.T) {
		bad := []llmResponse{
			{Intent: "record", Date: "soon", Amount: "-1"},
			{Intent: "record", Date: "2024-01-01", Amount: "lots"},
			{Intent: "query", StartDate: "2024-01-01", EndDate: "never"},
			{Intent: "transfer"},
		}
		for _, r := range bad {
			if _, err := r.toRequest(); err == nil {
				t.Errorf("payload %+v should be rejected", r)
			}
		}
	})
}
