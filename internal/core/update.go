package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldAmount      Field = "amount"
	FieldCategory    Field = "category"
	FieldStatus      Field = "status"
)

// Field names an editable transaction field.
type Field string

func (f Field) Valid() bool {
	switch f {
	case FieldDate, FieldDescription, FieldAmount, FieldCategory, FieldStatus:
		return true
	default:
		return false
	}
}

// FieldUpdate is a single-field edit with a value typed to the field. One
// constructor exists per editable field, so an update carrying the wrong
// value type cannot be built.
type FieldUpdate struct {
	field  Field
	date   time.Time
	text   string
	amount Money
	status Status
}

func UpdateDate(d time.Time) FieldUpdate {
	return FieldUpdate{field: FieldDate, date: d.UTC()}
}

func UpdateDescription(s string) FieldUpdate {
	return FieldUpdate{field: FieldDescription, text: s}
}

func UpdateAmount(m Money) FieldUpdate {
	return FieldUpdate{field: FieldAmount, amount: m}
}

func UpdateCategory(s string) FieldUpdate {
	return FieldUpdate{field: FieldCategory, text: s}
}

func UpdateStatus(s Status) FieldUpdate {
	return FieldUpdate{field: FieldStatus, status: s}
}

func (u FieldUpdate) Field() Field { return u.field }

func (u FieldUpdate) Validate() error {
	switch u.field {
	case FieldDate:
		if u.date.IsZero() {
			return ErrInvalidDate
		}
	case FieldDescription:
		if strings.TrimSpace(u.text) == "" {
			return ErrEmptyDescription
		}
	case FieldAmount:
		// Any signed amount is storable, zero included.
	case FieldCategory:
		if strings.TrimSpace(u.text) == "" {
			return ErrEmptyCategory
		}
	case FieldStatus:
		if !u.status.Valid() {
			return ErrInvalidStatus
		}
	default:
		return fmt.Errorf("unknown field %q", u.field)
	}
	return nil
}

// Apply writes the update's value into t.
func (u FieldUpdate) Apply(t *Transaction) {
	switch u.field {
	case FieldDate:
		t.Date = u.date
	case FieldDescription:
		t.Description = u.text
	case FieldAmount:
		t.Amount = u.amount
	case FieldCategory:
		t.Category = u.text
	case FieldStatus:
		t.Status = u.status
	}
}

// Equal reports whether the update's value is semantically equal to the
// field's current value in t. Edits that pass this check must never issue a
// remote write.
func (u FieldUpdate) Equal(t Transaction) bool {
	switch u.field {
	case FieldDate:
		return t.Date.Equal(u.date)
	case FieldDescription:
		return t.Description == u.text
	case FieldAmount:
		return t.Amount.Cents == u.amount.Cents
	case FieldCategory:
		return t.Category == u.text
	case FieldStatus:
		return t.Status == u.status
	default:
		return false
	}
}

// Encode writes the update into a partial wire body keyed by field name.
// Dates go out as RFC 3339, amounts as integer cents.
func (u FieldUpdate) Encode(body map[string]any) {
	switch u.field {
	case FieldDate:
		body["date"] = u.date.Format(time.RFC3339)
	case FieldDescription:
		body["description"] = u.text
	case FieldAmount:
		body["amount"] = u.amount.Cents
	case FieldCategory:
		body["category"] = u.text
	case FieldStatus:
		body["status"] = string(u.status)
	}
}

// ParseFieldUpdate coerces raw user input into a typed update. Amounts must
// parse to whole cents (decimal input is rounded, anything non-numeric is
// rejected), dates to an absolute timestamp. Rejection happens here, before
// any cache mutation or network traffic.
func ParseFieldUpdate(field Field, raw string) (FieldUpdate, error) {
	switch field {
	case FieldDate:
		d, err := ParseDate(raw)
		if err != nil {
			return FieldUpdate{}, err
		}
		return UpdateDate(d), nil
	case FieldDescription:
		if strings.TrimSpace(raw) == "" {
			return FieldUpdate{}, ErrEmptyDescription
		}
		return UpdateDescription(raw), nil
	case FieldAmount:
		cents, err := ParseSignedDecimalToCents(raw)
		if err != nil {
			return FieldUpdate{}, err
		}
		return UpdateAmount(Money{Cents: cents}), nil
	case FieldCategory:
		if strings.TrimSpace(raw) == "" {
			return FieldUpdate{}, ErrEmptyCategory
		}
		return UpdateCategory(raw), nil
	case FieldStatus:
		s := Status(strings.TrimSpace(raw))
		if !s.Valid() {
			return FieldUpdate{}, ErrInvalidStatus
		}
		return UpdateStatus(s), nil
	default:
		return FieldUpdate{}, fmt.Errorf("unknown field %q", field)
	}
}

// RoundToCents converts a float amount (already in minor units) to whole
// cents, rejecting NaN, infinities and values outside int64.
func RoundToCents(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidAmount
	}
	r := math.Round(v)
	if r > math.MaxInt64 || r < math.MinInt64 {
		return 0, ErrInvalidAmount
	}
	return int64(r), nil
}
