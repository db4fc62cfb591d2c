package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"mico/internal/core"
)

// RulesParser extracts transactions and queries from free text with plain
// pattern matching. It is the offline fallback when no LLM is configured
// and the safety net when the LLM misbehaves.
type RulesParser struct {
	now func() time.Time
}

func NewRulesParser() *RulesParser {
	return &RulesParser{now: time.Now}
}

var (
	amountRe = regexp.MustCompile(`(?:€|\$|£)?\s*([0-9]+(?:[.,][0-9]{1,3})?)`)
	isoRe    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	slashRe  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)

	incomeWords = []string{"received", "earned", "salary", "got paid", "income", "refund", "payout"}
	queryWords  = []string{"how much", "total", "summary", "spent on", "what did i spend", "spending"}

	// Order matters: first match wins.
	categoryKeywords = []struct {
		category string
		words    []string
	}{
		{"income", []string{"salary", "paycheck", "refund", "payout", "income"}},
		{"rent", []string{"rent", "landlord", "mortgage"}},
		{"food", []string{"grocer", "restaurant", "lunch", "dinner", "coffee", "food", "supermarket", "pizza"}},
		{"transport", []string{"bus", "train", "taxi", "fuel", "petrol", "uber", "transport", "metro", "parking"}},
		{"utilities", []string{"electric", "gas bill", "water bill", "internet", "phone bill", "utilit"}},
		{"entertainment", []string{"cinema", "movie", "concert", "netflix", "spotify", "game", "entertainment"}},
		{"health", []string{"pharmacy", "doctor", "dentist", "gym", "health"}},
		{"education", []string{"course", "tuition", "class", "education"}},
		{"shopping", []string{"clothes", "shoes", "amazon", "shopping", "bought"}},
	}

	monthNames = map[string]time.Month{
		"january": time.January, "february": time.February, "march": time.March,
		"april": time.April, "may": time.May, "june": time.June,
		"july": time.July, "august": time.August, "september": time.September,
		"october": time.October, "november": time.November, "december": time.December,
	}
)

func (p *RulesParser) Parse(_ context.Context, text string) (Request, error) {
	normalized := strings.Join(strings.Fields(strings.TrimSpace(text)), " ")
	if normalized == "" {
		return Request{}, fmt.Errorf("empty request")
	}
	lower := strings.ToLower(normalized)

	if isQuery(lower) {
		return Request{Intent: IntentQuery, Filter: p.guessFilter(lower)}, nil
	}
	t, err := p.guessTransaction(normalized, lower)
	if err != nil {
		return Request{}, err
	}
	return Request{Intent: IntentRecord, Transaction: t}, nil
}

func isQuery(lower string) bool {
	for _, w := range queryWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return strings.HasSuffix(lower, "?")
}

func (p *RulesParser) guessTransaction(text, lower string) (core.Transaction, error) {
	// Strip dates first so "2024" in 2024-01-05 is not read as an amount.
	amountSrc := isoRe.ReplaceAllString(text, "")
	amountSrc = slashRe.ReplaceAllString(amountSrc, "")
	m := amountRe.FindStringSubmatch(amountSrc)
	if m == nil {
		return core.Transaction{}, fmt.Errorf("no amount found in %q", text)
	}
	cents, err := core.ParseSignedDecimalToCents(m[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", m[1], err)
	}
	// Spending is the default; income keywords flip the sign.
	sign := int64(-1)
	for _, w := range incomeWords {
		if strings.Contains(lower, w) {
			sign = 1
			break
		}
	}

	return core.Transaction{
		Date:        p.guessDate(lower),
		Description: guessDescription(text),
		Amount:      core.Money{Cents: sign * cents},
		Category:    guessCategory(lower, sign),
		Status:      core.StatusCompleted,
	}, nil
}

func (p *RulesParser) guessDate(lower string) time.Time {
	today := p.now().UTC().Truncate(24 * time.Hour)
	if strings.Contains(lower, "yesterday") {
		return today.AddDate(0, 0, -1)
	}
	if m := isoRe.FindStringSubmatch(lower); m != nil {
		if d, err := core.ParseDate(m[0]); err == nil {
			return d
		}
	}
	if m := slashRe.FindStringSubmatch(lower); m != nil {
		// DD/MM/YYYY
		if d, err := core.ParseDate(m[3] + "-" + pad2(m[2]) + "-" + pad2(m[1])); err == nil {
			return d
		}
	}
	return today
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// guessDescription strips amounts and filler verbs, keeping whatever names
// the purchase.
func guessDescription(text string) string {
	s := isoRe.ReplaceAllString(text, "")
	s = slashRe.ReplaceAllString(s, "")
	s = amountRe.ReplaceAllString(s, "")
	for _, w := range []string{"spent", "paid", "bought", "received", "got paid", "I", "i", "on", "for", "today", "yesterday", "€", "$", "£"} {
		s = regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`).ReplaceAllString(s, "")
	}
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " .,:;-")
	if s == "" {
		return "untitled"
	}
	if len(s) > 64 {
		s = s[:64]
	}
	return s
}

func guessCategory(lower string, sign int64) string {
	for _, group := range categoryKeywords {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.category
			}
		}
	}
	if sign > 0 {
		return "income"
	}
	return "other"
}

// guessFilter pulls a category and an optional month range out of a query.
func (p *RulesParser) guessFilter(lower string) core.QueryFilter {
	var f core.QueryFilter

	for _, cat := range core.CanonicalCategories {
		if strings.Contains(lower, cat) {
			c := cat
			f.Category = &c
			break
		}
	}
	if f.Category == nil {
	groups:
		for _, group := range categoryKeywords {
			for _, w := range group.words {
				if strings.Contains(lower, w) {
					c := group.category
					f.Category = &c
					break groups
				}
			}
		}
	}

	for name, month := range monthNames {
		if !strings.Contains(lower, name) {
			continue
		}
		year := p.now().UTC().Year()
		start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		// Months in the future mean the same month last year.
		if start.After(p.now().UTC()) {
			start = start.AddDate(-1, 0, 0)
		}
		end := start.AddDate(0, 1, 0).Add(-time.Second)
		f.StartDate = &start
		f.EndDate = &end
		break
	}

	if strings.Contains(lower, "this month") {
		now := p.now().UTC()
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0).Add(-time.Second)
		f.StartDate = &start
		f.EndDate = &end
	}

	return f
}
