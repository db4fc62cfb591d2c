// Package ledger defines the ports the HTTP layer talks to. Storage
// backends (SQLite, memory) implement them.
package ledger

import (
	"context"

	"mico/internal/core"
)

type (
	TransactionWriter interface {
		// CreateTransaction persists t and returns the assigned id.
		CreateTransaction(ctx context.Context, t core.Transaction) (string, error)
	}

	TransactionReader interface {
		// ListTransactions returns all transactions ordered by date
		// descending, plus the signed grand total.
		ListTransactions(ctx context.Context) ([]core.Transaction, int64, error)
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	}

	TransactionUpdater interface {
		// UpdateTransaction applies the given field updates to one record.
		// Returns core.ErrNotFound for an unknown id.
		UpdateTransaction(ctx context.Context, id string, updates []core.FieldUpdate) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	SummaryReader interface {
		// Summarize computes count and signed sum over the filtered subset.
		Summarize(ctx context.Context, f core.QueryFilter) (core.Summary, error)
	}

	// TransactionStore is the full transaction surface.
	TransactionStore interface {
		TransactionWriter
		TransactionReader
		TransactionUpdater
		SummaryReader
	}

	// EntityChanges is a partial entity update; nil means leave as-is.
	EntityChanges struct {
		Name *string
		Type *string
	}

	EntityStore interface {
		CreateEntity(ctx context.Context, e core.Entity) (string, error)
		ListEntities(ctx context.Context, userID string) ([]core.Entity, error)
		GetEntity(ctx context.Context, id string) (core.Entity, error)
		UpdateEntity(ctx context.Context, id, userID string, ch EntityChanges) error
		DeleteEntity(ctx context.Context, id, userID string) error

		CreateEntityType(ctx context.Context, et core.EntityType) (string, error)
		ListEntityTypes(ctx context.Context, userID string) ([]core.EntityType, error)
		UpdateEntityType(ctx context.Context, id, userID, name string) error
		// DeleteEntityType fails with core.ErrEntityTypeInUse while any
		// entity still references the type.
		DeleteEntityType(ctx context.Context, id, userID string) error
	}

	// Store is everything a full backend provides.
	Store interface {
		TransactionStore
		EntityStore
	}
)
