package core

import "time"

// Summary is the aggregate over a filtered transaction subset.
// TotalAmount is nil when the matched set is empty.
type Summary struct {
	TotalAmount *int64
	Count       int
}

// QueryFilter selects a transaction subset. The date predicate applies only
// when BOTH bounds are set; a lone bound is ignored entirely. That matches
// the deployed behavior and callers depend on it, so it is pinned by tests
// rather than "fixed".
type QueryFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Category  *string
}

// HasDateRange reports whether the date predicate is active.
func (f QueryFilter) HasDateRange() bool {
	return f.StartDate != nil && f.EndDate != nil
}

// Matches reports whether t passes every active predicate. The date range
// is inclusive on both ends; category comparison is exact and
// case-sensitive.
func (f QueryFilter) Matches(t Transaction) bool {
	if f.HasDateRange() {
		if t.Date.Before(*f.StartDate) || t.Date.After(*f.EndDate) {
			return false
		}
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	return true
}

// Summarize computes the count and signed sum of the transactions matching
// f. Pure; the SQL implementation in storage must agree with it.
func Summarize(txns []Transaction, f QueryFilter) Summary {
	var sum int64
	count := 0
	for _, t := range txns {
		if !f.Matches(t) {
			continue
		}
		sum += t.Amount.Cents
		count++
	}
	if count == 0 {
		return Summary{Count: 0}
	}
	return Summary{TotalAmount: &sum, Count: count}
}
