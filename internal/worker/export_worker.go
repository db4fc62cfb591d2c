// Package worker drains the export queue: transactions changed through the
// API get mirrored to the configured spreadsheet, driven by AMQP messages
// with a periodic database sweep as backstop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mico/internal/amqp"
	"mico/internal/core"
	"mico/internal/export"
)

// ExportStore is the slice of the repository the worker needs.
type ExportStore interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	ListUnsynced(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkSynced(ctx context.Context, id string) error
}

type ExportWorker struct {
	store     ExportStore
	appender  export.TransactionAppender
	batchSize int
}

func NewExportWorker(store ExportStore, appender export.TransactionAppender, batchSize int) *ExportWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{
		store:     store,
		appender:  appender,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes one queued change notification. Deleted
// transactions have no row to update in an append-only export, so delete
// messages are acknowledged and skipped.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"transaction_id", msg.ID,
		"op", msg.Op)

	if msg.Op == "delete" {
		return nil
	}

	t, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Deleted between publish and consume; nothing to export.
			slog.WarnContext(ctx, "Transaction gone before export", "transaction_id", msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction: %w", err)
	}

	return w.exportOne(ctx, t)
}

// ProcessPending sweeps transactions the message path missed. It is the
// backstop for lost AMQP messages.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.ListUnsynced(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unsynced: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, t := range pending {
		if err := w.exportOne(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "transaction_id", t.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupSyncCheck drains a larger backlog once at worker start, recovering
// from downtime while messages kept arriving.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.ListUnsynced(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list unsynced for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup", "count", len(pending))

	synced, failed := 0, 0
	for _, t := range pending {
		if err := w.exportOne(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"transaction_id", t.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *ExportWorker) exportOne(ctx context.Context, t core.Transaction) error {
	ref, err := w.appender.Append(ctx, t)
	if err != nil {
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkSynced(ctx, t.ID); err != nil {
		// The row landed; a failed flag update only means a duplicate on
		// the next sweep.
		slog.ErrorContext(ctx, "Failed to mark as synced", "transaction_id", t.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction",
		"transaction_id", t.ID,
		"sheet_ref", ref,
		"amount_cents", t.Amount.Cents)
	return nil
}
