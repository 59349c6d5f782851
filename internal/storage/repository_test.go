package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kashela/internal/core"
	"kashela/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "kashela.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleTx(id, user, amount string, typ core.TransactionType, ts time.Time) core.StoredTransaction {
	return core.StoredTransaction{
		ID:        id,
		UserID:    user,
		Source:    core.SourceVoice,
		CreatedAt: ts.Add(time.Minute),
		TransactionRecord: core.TransactionRecord{
			Amount:      decimal.RequireFromString(amount),
			Type:        typ,
			Category:    "food",
			Description: "lunch",
			Timestamp:   ts,
		},
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	v2, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if v1 != 2 || v2 != 2 {
		t.Fatalf("expected schema version 2, got %d then %d", v1, v2)
	}
}

func TestInsertAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	ts := time.Date(2025, 5, 3, 14, 30, 0, 123, time.FixedZone("EAT", 3*3600))
	in := sampleTx("t1", "u1", "1250.75", core.Expense, ts)
	in.ImageURL = "gs://bucket/images/r.png"

	if err := repo.InsertTransaction(ctx, in); err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := repo.GetTransaction(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Amount.Equal(in.Amount) || got.Type != core.Expense || got.Source != core.SourceVoice {
		t.Fatalf("unexpected row: %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Fatalf("timestamp mismatch: got %v want %v", got.Timestamp, ts)
	}
	if got.ImageURL != in.ImageURL || got.Description != "lunch" {
		t.Fatalf("unexpected optional fields: %+v", got)
	}

	if _, err := repo.GetTransaction(ctx, "someone-else", "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	bad := sampleTx("t1", "u1", "-5", core.Expense, time.Now())
	if err := repo.InsertTransaction(context.Background(), bad); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	rows := []core.StoredTransaction{
		sampleTx("apr", "u1", "10", core.Expense, time.Date(2025, 4, 30, 23, 59, 59, 0, time.UTC)),
		sampleTx("may1", "u1", "20", core.Income, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)),
		sampleTx("may2", "u1", "30", core.Expense, time.Date(2025, 5, 31, 23, 59, 59, 0, time.UTC)),
		sampleTx("jun", "u1", "40", core.Expense, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
		sampleTx("other", "u2", "50", core.Expense, time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)),
	}
	for _, r := range rows {
		if err := repo.InsertTransaction(ctx, r); err != nil {
			t.Fatalf("insert %s: %v", r.ID, err)
		}
	}

	may, err := repo.ListTransactions(ctx, "u1", store.ListFilter{Year: 2025, Month: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(may) != 2 || may[0].ID != "may2" || may[1].ID != "may1" {
		t.Fatalf("unexpected May rows: %+v", may)
	}

	year, _ := repo.ListTransactions(ctx, "u1", store.ListFilter{Year: 2025})
	if len(year) != 4 {
		t.Fatalf("expected 4 rows in 2025, got %d", len(year))
	}

	limited, _ := repo.ListTransactions(ctx, "u1", store.ListFilter{Limit: 2})
	if len(limited) != 2 || limited[0].ID != "jun" {
		t.Fatalf("unexpected limited rows: %+v", limited)
	}
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	if err := repo.InsertTransaction(ctx, sampleTx("t1", "u1", "1", core.Income, time.Now())); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u2", "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, "u1", "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMirrorBookkeeping(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		row := sampleTx(id, "u1", "5", core.Expense, base.Add(time.Duration(i)*time.Hour))
		if err := repo.InsertTransaction(ctx, row); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	pending, err := repo.GetPendingMirror(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 3 || pending[0].ID != "a" || pending[0].Version != 1 {
		t.Fatalf("unexpected pending rows: %+v", pending)
	}

	if err := repo.MarkMirrored(ctx, "a"); err != nil {
		t.Fatalf("mark mirrored: %v", err)
	}
	if err := repo.MarkMirrorError(ctx, "b"); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	pending, _ = repo.GetPendingMirror(ctx, 10)
	if len(pending) != 1 || pending[0].ID != "c" {
		t.Fatalf("expected only c pending, got %+v", pending)
	}
}

func TestPayments(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := core.Payment{
		TransactionID: "MOCK_0A1B2C3D",
		UserID:        "u1",
		PhoneNumber:   "254712345678",
		Amount:        decimal.NewFromInt(100),
		Status:        core.PaymentSuccess,
		Mode:          "mock",
		CreatedAt:     time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.SavePayment(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	p.Status = core.PaymentCompleted
	if err := repo.SavePayment(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := repo.GetPayment(ctx, "u1", p.TransactionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != core.PaymentCompleted || !got.Amount.Equal(p.Amount) || got.PhoneNumber != p.PhoneNumber {
		t.Fatalf("unexpected payment: %+v", got)
	}
	if _, err := repo.GetPayment(ctx, "u2", p.TransactionID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
