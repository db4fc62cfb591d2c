// Package export defines the outbound port for mirroring transactions to an
// external spreadsheet.
package export

import (
	"context"

	"mico/internal/core"
)

type TransactionAppender interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
