package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type (
	// Status is the lifecycle state of a transaction.
	Status string

	Money struct {
		Cents int64
	}

	// Transaction is a single financial movement. Amounts are signed minor
	// currency units: positive is a credit, negative a debit.
	Transaction struct {
		ID          string
		Date        time.Time
		Description string
		Amount      Money
		Category    string
		Status      Status
	}

	// Entity is a named account/owner record, scoped to a user.
	Entity struct {
		ID       string
		UserID   string
		Type     string // entity type id
		TypeName string // resolved type name, read-only
		Name     string
	}

	// EntityType is a user-defined label for entities.
	EntityType struct {
		ID     string
		UserID string
		Name   string
	}
)

// CanonicalCategories is the suggested category set. The field itself is
// open: any non-empty label is accepted.
var CanonicalCategories = []string{
	"food", "transport", "utilities", "entertainment", "shopping",
	"income", "rent", "health", "education", "other",
}

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrNotFound         = errors.New("not found")
	ErrEntityTypeInUse  = errors.New("entity type is referenced by an entity")
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

func (t Transaction) Validate() error {
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

func (e Entity) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return errors.New("empty user id")
	}
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("empty entity name")
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("empty entity type")
	}
	return nil
}

func (et EntityType) Validate() error {
	if strings.TrimSpace(et.UserID) == "" {
		return errors.New("empty user id")
	}
	if strings.TrimSpace(et.Name) == "" {
		return errors.New("empty entity type name")
	}
	return nil
}

// ParseDate accepts the timestamp formats the API and agent produce:
// RFC 3339 and plain YYYY-MM-DD. Results are normalized to UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, ErrInvalidDate
}
