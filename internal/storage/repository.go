package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"kashela/internal/core"
	"kashela/internal/store"

	_ "modernc.org/sqlite"
)

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc serializes writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.StoredTransaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, type, category, description, image_url, source, occurred_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Amount.String(), string(t.Type), t.Category, t.Description,
		t.ImageURL, string(t.Source), formatTime(t.Timestamp), formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"category", t.Category)
	return nil
}

const selectTransaction = `
	SELECT id, user_id, amount, type, category, description, image_url, source, occurred_at, created_at
	FROM transactions`

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.StoredTransaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.StoredTransaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.StoredTransaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, f store.ListFilter) ([]core.StoredTransaction, error) {
	query := selectTransaction + ` WHERE user_id = ?`
	args := []any{userID}
	if from, to, ok := filterRange(f); ok {
		query += ` AND occurred_at >= ? AND occurred_at < ?`
		args = append(args, formatTime(from), formatTime(to))
	}
	query += ` ORDER BY occurred_at DESC, created_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.StoredTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// PendingMirror is the minimal data needed to republish a created event.
type PendingMirror struct {
	ID        string
	UserID    string
	Version   int64
	CreatedAt time.Time
}

// GetPendingMirror returns rows not yet copied to the spreadsheet, oldest first.
func (r *SQLiteRepository) GetPendingMirror(ctx context.Context, limit int) ([]PendingMirror, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, version, created_at FROM transactions
		WHERE sync_status = 'pending'
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending mirror rows: %w", err)
	}
	defer rows.Close()

	var out []PendingMirror
	for rows.Next() {
		var p PendingMirror
		var created string
		if err := rows.Scan(&p.ID, &p.UserID, &p.Version, &created); err != nil {
			return nil, fmt.Errorf("scan pending mirror row: %w", err)
		}
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced', synced_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark transaction mirrored: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction mirror error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with mirror error", "id", id)
	return nil
}

func (r *SQLiteRepository) SavePayment(ctx context.Context, p core.Payment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (transaction_id, user_id, phone_number, amount, description, status, mode, checkout_request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (transaction_id) DO UPDATE SET status = excluded.status, checkout_request_id = excluded.checkout_request_id`,
		p.TransactionID, p.UserID, p.PhoneNumber, p.Amount.String(), p.Description,
		string(p.Status), p.Mode, p.CheckoutRequestID, formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, userID, transactionID string) (core.Payment, error) {
	var (
		p              core.Payment
		amount, status string
		created        string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT transaction_id, user_id, phone_number, amount, description, status, mode, checkout_request_id, created_at
		FROM payments WHERE transaction_id = ? AND user_id = ?`, transactionID, userID).
		Scan(&p.TransactionID, &p.UserID, &p.PhoneNumber, &amount, &p.Description, &status, &p.Mode, &p.CheckoutRequestID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, store.ErrNotFound
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Payment{}, fmt.Errorf("decode payment amount: %w", err)
	}
	if p.CreatedAt, err = parseTime(created); err != nil {
		return core.Payment{}, err
	}
	p.Status = core.PaymentStatus(status)
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s scanner) (core.StoredTransaction, error) {
	var (
		t                   core.StoredTransaction
		amount, typ, source string
		occurred, created   string
	)
	if err := s.Scan(&t.ID, &t.UserID, &amount, &typ, &t.Category, &t.Description, &t.ImageURL, &source, &occurred, &created); err != nil {
		return core.StoredTransaction{}, err
	}
	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.StoredTransaction{}, fmt.Errorf("decode amount %q: %w", amount, err)
	}
	if t.Timestamp, err = parseTime(occurred); err != nil {
		return core.StoredTransaction{}, err
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return core.StoredTransaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Source = core.Source(source)
	return t, nil
}

func filterRange(f store.ListFilter) (time.Time, time.Time, bool) {
	switch {
	case f.Year == 0:
		return time.Time{}, time.Time{}, false
	case f.Month == 0:
		from := time.Date(f.Year, 1, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), true
	default:
		from := time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0), true
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	return t, nil
}
