package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kashela/internal/cache"
	"kashela/internal/core"
	"kashela/internal/store"
	"kashela/internal/store/memory"
)

type recordingPublisher struct {
	mu    sync.Mutex
	ids   []string
	err   error
	delay time.Duration
}

func (p *recordingPublisher) PublishTransactionCreated(ctx context.Context, id, userID string, version int64) error {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids = append(p.ids, id)
	return p.err
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ids...)
}

func record(t *testing.T, typ core.TransactionType, amount, category string, ts time.Time) core.TransactionRecord {
	t.Helper()
	r, err := core.NewTransactionRecord(decimal.RequireFromString(amount), typ, category, category, ts)
	if err != nil {
		t.Fatalf("NewTransactionRecord: %v", err)
	}
	return r
}

func newTestService(pub Publisher) (*TransactionService, *memory.Store) {
	repo := memory.New()
	svc := NewTransactionService(repo, pub, cache.NewReportCache(10, time.Minute))
	return svc, repo
}

func TestTransactionService_Create(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, repo := newTestService(pub)

	nairobi := time.FixedZone("EAT", 3*3600)
	ts := time.Date(2025, 3, 1, 1, 0, 0, 0, nairobi)
	got, err := svc.Create(ctx, "user-1", record(t, core.Expense, "120", "food", ts), "", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID == "" || got.Source != core.SourceManual {
		t.Errorf("unexpected transaction: %+v", got)
	}
	if got.Timestamp.Location() != time.UTC || !got.Timestamp.Equal(ts) {
		t.Errorf("timestamp should be normalized to UTC, got %v", got.Timestamp)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected 1 stored row, got %d", repo.Len())
	}

	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if ids := pub.published(); len(ids) != 1 || ids[0] != got.ID {
		t.Errorf("expected publish of %s, got %v", got.ID, ids)
	}
}

func TestTransactionService_CreatePublishFailureIsNotFatal(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, repo := newTestService(pub)

	_, err := svc.Create(context.Background(), "user-1", record(t, core.Income, "10", "salary", time.Now()), core.SourceVoice, "")
	if err != nil {
		t.Fatalf("Create should succeed when publish fails: %v", err)
	}
	_ = svc.Close()
	if repo.Len() != 1 {
		t.Fatal("transaction should still be stored")
	}
}

func TestTransactionService_PublishOutlivesRequestContext(t *testing.T) {
	pub := &recordingPublisher{delay: 20 * time.Millisecond}
	svc, _ := newTestService(pub)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Create(ctx, "user-1", record(t, core.Income, "10", "salary", time.Now()), core.SourceManual, "")
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	_ = svc.Close()
	if len(pub.published()) != 1 {
		t.Fatal("publish should not be cancelled with the request")
	}
}

func TestTransactionService_CreateRejectsBadSource(t *testing.T) {
	svc, repo := newTestService(nil)
	_, err := svc.Create(context.Background(), "user-1", record(t, core.Income, "10", "salary", time.Now()), core.Source("fax"), "")
	if err == nil || repo.Len() != 0 {
		t.Fatalf("expected rejection, err=%v len=%d", err, repo.Len())
	}
}

func TestTransactionService_GetAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(nil)

	tx, err := svc.Create(ctx, "user-1", record(t, core.Expense, "5", "transport", time.Now()), core.SourceManual, "")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, "user-2", tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("other users must not see the transaction, got %v", err)
	}
	if err := svc.Delete(ctx, "user-2", tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("other users must not delete the transaction, got %v", err)
	}
	if err := svc.Delete(ctx, "user-1", tx.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "user-1", tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestTransactionService_ListValidatesPeriod(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	for _, f := range []store.ListFilter{{Month: 3}, {Year: 2025, Month: 13}, {Year: -1}} {
		if _, err := svc.List(ctx, "user-1", f); !errors.Is(err, ErrInvalidPeriod) {
			t.Errorf("List(%+v) = %v, want ErrInvalidPeriod", f, err)
		}
	}
	if _, err := svc.List(ctx, "user-1", store.ListFilter{Year: 2025}); err != nil {
		t.Errorf("year-only filter should be valid: %v", err)
	}
}

func TestTransactionService_MonthlyReport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(nil)
	march := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	mustCreate := func(r core.TransactionRecord) core.StoredTransaction {
		t.Helper()
		tx, err := svc.Create(ctx, "user-1", r, core.SourceManual, "")
		if err != nil {
			t.Fatal(err)
		}
		return tx
	}
	mustCreate(record(t, core.Income, "1000", "salary", march))
	food := mustCreate(record(t, core.Expense, "250.50", "food", march))
	mustCreate(record(t, core.Expense, "99", "food", march.AddDate(0, 1, 0)))

	r, err := svc.MonthlyReport(ctx, "user-1", 2025, 3)
	if err != nil {
		t.Fatalf("MonthlyReport: %v", err)
	}
	if r.TransactionCount != 2 || !r.NetAmount.Equal(decimal.RequireFromString("749.50")) {
		t.Fatalf("unexpected report: %+v", r)
	}

	// A new transaction in the month invalidates the cached report.
	mustCreate(record(t, core.Expense, "49.50", "food", march))
	r, err = svc.MonthlyReport(ctx, "user-1", 2025, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !r.ExpenseBreakdown["food"].Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected refreshed food total 300, got %s", r.ExpenseBreakdown["food"])
	}

	if err := svc.Delete(ctx, "user-1", food.ID); err != nil {
		t.Fatal(err)
	}
	r, _ = svc.MonthlyReport(ctx, "user-1", 2025, 3)
	if r.TransactionCount != 2 {
		t.Errorf("delete should invalidate the report, count=%d", r.TransactionCount)
	}

	if _, err := svc.MonthlyReport(ctx, "user-1", 2025, 0); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("expected ErrInvalidPeriod, got %v", err)
	}
}

// listHookRepo runs hook once, after the first listing has been read.
type listHookRepo struct {
	store.Repository
	once sync.Once
	hook func()
}

func (r *listHookRepo) ListTransactions(ctx context.Context, userID string, f store.ListFilter) ([]core.StoredTransaction, error) {
	rows, err := r.Repository.ListTransactions(ctx, userID, f)
	r.once.Do(r.hook)
	return rows, err
}

func TestTransactionService_MonthlyReportNotCachedAcrossConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	march := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	repo := &listHookRepo{Repository: memory.New()}
	svc := NewTransactionService(repo, nil, cache.NewReportCache(10, time.Minute))
	repo.hook = func() {
		if _, err := svc.Create(ctx, "user-1", record(t, core.Expense, "80", "food", march), core.SourceManual, ""); err != nil {
			t.Errorf("Create during listing: %v", err)
		}
	}

	r, err := svc.MonthlyReport(ctx, "user-1", 2025, 3)
	if err != nil {
		t.Fatal(err)
	}
	if r.TransactionCount != 0 {
		t.Fatalf("first report was read before the write, count=%d", r.TransactionCount)
	}

	r, err = svc.MonthlyReport(ctx, "user-1", 2025, 3)
	if err != nil {
		t.Fatal(err)
	}
	if r.TransactionCount != 1 || !r.TotalExpenses.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("report computed before the write must not be served, got %+v", r)
	}
}
