// Package agent turns natural-language requests into ledger operations. It
// only talks to the REST API; the database stays behind the server.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"mico/internal/api"
	"mico/internal/core"
)

// Intent is what the user wants done.
type Intent int

const (
	IntentUnknown Intent = iota
	// IntentRecord creates a transaction from the described purchase or
	// income.
	IntentRecord
	// IntentQuery summarizes existing transactions under a filter.
	IntentQuery
)

// Request is a parsed user utterance.
type Request struct {
	Intent      Intent
	Transaction core.Transaction
	Filter      core.QueryFilter
}

// Parser extracts a Request from free text.
type Parser interface {
	Parse(ctx context.Context, text string) (Request, error)
}

type Agent struct {
	client *api.Client
	parser Parser
}

func New(client *api.Client, parser Parser) *Agent {
	return &Agent{client: client, parser: parser}
}

// Handle parses text and runs the resulting operation, returning a short
// human-readable answer.
func (a *Agent) Handle(ctx context.Context, text string) (string, error) {
	req, err := a.parser.Parse(ctx, text)
	if err != nil {
		return "", fmt.Errorf("parse request: %w", err)
	}

	switch req.Intent {
	case IntentRecord:
		return a.record(ctx, req.Transaction)
	case IntentQuery:
		return a.query(ctx, req.Filter)
	default:
		return "", fmt.Errorf("could not work out what to do with %q", text)
	}
}

func (a *Agent) record(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("incomplete transaction: %w", err)
	}
	if err := a.client.CreateTransaction(ctx, t); err != nil {
		return "", fmt.Errorf("record transaction: %w", err)
	}
	slog.InfoContext(ctx, "Agent recorded transaction",
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"category", t.Category)

	verb := "Recorded"
	if t.Amount.Cents > 0 {
		verb = "Recorded income of"
	}
	return fmt.Sprintf("%s %s for %q in %s on %s.",
		verb, t.Amount.Format(), t.Description, t.Category,
		t.Date.Format("2006-01-02")), nil
}

func (a *Agent) query(ctx context.Context, f core.QueryFilter) (string, error) {
	s, err := a.client.QuerySummary(ctx, f)
	if err != nil {
		return "", fmt.Errorf("query summary: %w", err)
	}

	scope := describeFilter(f)
	if s.Count == 0 || s.TotalAmount == nil {
		return fmt.Sprintf("No transactions found %s.", scope), nil
	}
	total := core.Money{Cents: *s.TotalAmount}
	return fmt.Sprintf("%d transactions %s, totalling %s.", s.Count, scope, total.Format()), nil
}

func describeFilter(f core.QueryFilter) string {
	var parts []string
	if f.Category != nil {
		parts = append(parts, "in "+*f.Category)
	}
	if f.HasDateRange() {
		parts = append(parts, fmt.Sprintf("between %s and %s",
			f.StartDate.Format("2006-01-02"), f.EndDate.Format("2006-01-02")))
	}
	if len(parts) == 0 {
		return "overall"
	}
	return strings.Join(parts, " ")
}
