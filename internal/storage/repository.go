// Package storage is the SQLite ledger backend. Schema lives in embedded
// migrations and is applied on open.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"mico/internal/core"
	"mico/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, date, description, amount_cents, category, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, t.Date.UTC().Unix(), t.Description, t.Amount.Cents, t.Category, string(t.Status))
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"category", t.Category)

	return id, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, description, amount_cents, category, status
		 FROM transactions ORDER BY date DESC, id`)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var (
		out   []core.Transaction
		total int64
	)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		total += t.Amount.Cents
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, total, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, date, description, amount_cents, category, status
		 FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction applies the given field updates in one statement and
// resets the sync flag so the export worker picks the record up again.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id string, updates []core.FieldUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	for _, u := range updates {
		if err := u.Validate(); err != nil {
			return err
		}
	}

	set := make([]string, 0, len(updates)+2)
	args := make([]any, 0, len(updates)+3)
	body := map[string]any{}
	for _, u := range updates {
		u.Encode(body)
	}
	if v, ok := body["date"]; ok {
		d, err := core.ParseDate(v.(string))
		if err != nil {
			return err
		}
		set = append(set, "date = ?")
		args = append(args, d.Unix())
	}
	for _, col := range []string{"description", "amount", "category", "status"} {
		v, ok := body[col]
		if !ok {
			continue
		}
		if col == "amount" {
			set = append(set, "amount_cents = ?")
		} else {
			set = append(set, col+" = ?")
		}
		args = append(args, v)
	}
	set = append(set, "synced = 0", "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Summarize runs the filtered count+sum in SQL. Semantics must agree with
// core.Summarize: both date bounds or no date predicate, inclusive range,
// exact category match.
func (r *SQLiteRepository) Summarize(ctx context.Context, f core.QueryFilter) (core.Summary, error) {
	where := make([]string, 0, 2)
	args := make([]any, 0, 3)
	if f.HasDateRange() {
		where = append(where, "date BETWEEN ? AND ?")
		args = append(args, f.StartDate.UTC().Unix(), f.EndDate.UTC().Unix())
	}
	if f.Category != nil {
		where = append(where, "category = ?")
		args = append(args, *f.Category)
	}

	q := `SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM transactions`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	var (
		count int
		sum   int64
	)
	if err := r.db.QueryRowContext(ctx, q, args...).Scan(&count, &sum); err != nil {
		return core.Summary{}, fmt.Errorf("summarize transactions: %w", err)
	}
	if count == 0 {
		return core.Summary{Count: 0}, nil
	}
	return core.Summary{TotalAmount: &sum, Count: count}, nil
}

// ListUnsynced returns transactions not yet mirrored to the export target.
func (r *SQLiteRepository) ListUnsynced(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, description, amount_cents, category, status
		 FROM transactions WHERE synced = 0 ORDER BY date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unsynced transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unsynced transactions: %w", err)
	}
	return out, nil
}

// MarkSynced flags a transaction as mirrored to the export target.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET synced = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark synced rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) CreateEntity(ctx context.Context, e core.Entity) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entity_types WHERE id = ? AND user_id = ?`,
		e.Type, e.UserID).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("check entity type: %w", err)
	}
	if exists == 0 {
		return "", core.ErrNotFound
	}

	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO entities (id, user_id, type, name) VALUES (?, ?, ?, ?)`,
		id, e.UserID, e.Type, e.Name)
	if err != nil {
		return "", fmt.Errorf("create entity: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListEntities(ctx context.Context, userID string) ([]core.Entity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.user_id, e.type, COALESCE(t.name, ''), e.name
		 FROM entities e
		 LEFT JOIN entity_types t ON e.type = t.id
		 WHERE e.user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []core.Entity
	for rows.Next() {
		var e core.Entity
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.TypeName, &e.Name); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetEntity(ctx context.Context, id string) (core.Entity, error) {
	var e core.Entity
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, type, name FROM entities WHERE id = ?`, id).
		Scan(&e.ID, &e.UserID, &e.Type, &e.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entity{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entity{}, fmt.Errorf("get entity: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateEntity(ctx context.Context, id, userID string, ch ledger.EntityChanges) error {
	set := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if ch.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *ch.Name)
	}
	if ch.Type != nil {
		set = append(set, "type = ?")
		args = append(args, *ch.Type)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id, userID)

	res, err := r.db.ExecContext(ctx,
		"UPDATE entities SET "+strings.Join(set, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entity rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteEntity(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entities WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entity rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateEntityType(ctx context.Context, et core.EntityType) (string, error) {
	if err := et.Validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entity_types (id, user_id, name) VALUES (?, ?, ?)`,
		id, et.UserID, et.Name)
	if err != nil {
		return "", fmt.Errorf("create entity type: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListEntityTypes(ctx context.Context, userID string) ([]core.EntityType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name FROM entity_types WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list entity types: %w", err)
	}
	defer rows.Close()

	var out []core.EntityType
	for rows.Next() {
		var et core.EntityType
		if err := rows.Scan(&et.ID, &et.UserID, &et.Name); err != nil {
			return nil, fmt.Errorf("scan entity type: %w", err)
		}
		out = append(out, et)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity types: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateEntityType(ctx context.Context, id, userID, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE entity_types SET name = ? WHERE id = ? AND user_id = ?`, name, id, userID)
	if err != nil {
		return fmt.Errorf("update entity type: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update entity type rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteEntityType refuses to remove a type that entities still reference,
// so the client gets a structured error instead of orphaned rows.
func (r *SQLiteRepository) DeleteEntityType(ctx context.Context, id, userID string) error {
	var inUse int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE type = ?`, id).Scan(&inUse); err != nil {
		return fmt.Errorf("check entity type references: %w", err)
	}
	if inUse > 0 {
		return core.ErrEntityTypeInUse
	}

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM entity_types WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete entity type: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entity type rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t      core.Transaction
		unix   int64
		status string
	)
	if err := row.Scan(&t.ID, &unix, &t.Description, &t.Amount.Cents, &t.Category, &status); err != nil {
		return core.Transaction{}, err
	}
	t.Date = time.Unix(unix, 0).UTC()
	t.Status = core.Status(status)
	return t, nil
}
