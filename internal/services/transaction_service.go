package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"kashela/internal/cache"
	"kashela/internal/core"
	"kashela/internal/report"
	"kashela/internal/store"
)

// ErrInvalidPeriod is returned for a report month outside 1-12 or a year
// outside 1-9999.
var ErrInvalidPeriod = errors.New("invalid report period")

// Publisher announces stored transactions to the mirror worker.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, id, userID string, version int64) error
}

// TransactionService owns the lifecycle of a user's transactions: it stores
// them, announces new ones and serves cached monthly reports.
type TransactionService struct {
	repo      store.Repository
	publisher Publisher
	reports   *cache.ReportCache

	now   func() time.Time
	newID func() string

	// in-flight publishes
	wg sync.WaitGroup
}

// NewTransactionService wires the service. publisher and reports may be nil.
func NewTransactionService(repo store.Repository, publisher Publisher, reports *cache.ReportCache) *TransactionService {
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
		reports:   reports,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Create stores rec for userID and publishes a transaction.created event in
// the background. A publish failure never fails the request.
func (s *TransactionService) Create(ctx context.Context, userID string, rec core.TransactionRecord, src core.Source, imageURL string) (core.StoredTransaction, error) {
	if src == "" {
		src = core.SourceManual
	}
	rec.Timestamp = rec.Timestamp.UTC()
	t := core.StoredTransaction{
		ID:                s.newID(),
		UserID:            userID,
		Source:            src,
		ImageURL:          imageURL,
		CreatedAt:         s.now().UTC(),
		TransactionRecord: rec,
	}
	if err := src.Validate(); err != nil {
		return core.StoredTransaction{}, err
	}
	if err := t.Validate(); err != nil {
		return core.StoredTransaction{}, err
	}

	if err := s.repo.InsertTransaction(ctx, t); err != nil {
		return core.StoredTransaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(userID, t.Timestamp)

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", t.ID,
		"user_id", userID,
		"source", src,
		"type", t.Type,
		"category", t.Category)

	s.publishCreated(ctx, t)
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.StoredTransaction, error) {
	return s.repo.GetTransaction(ctx, userID, id)
}

func (s *TransactionService) List(ctx context.Context, userID string, f store.ListFilter) ([]core.StoredTransaction, error) {
	if f.Year != 0 || f.Month != 0 {
		if err := validPeriod(f.Year, f.Month, f.Month == 0); err != nil {
			return nil, err
		}
	}
	return s.repo.ListTransactions(ctx, userID, f)
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	t, err := s.repo.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidate(userID, t.Timestamp)
	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id, "user_id", userID)
	return nil
}

// MonthlyReport aggregates the user's transactions for one calendar month
// (UTC). Results are cached until a transaction in that month changes.
func (s *TransactionService) MonthlyReport(ctx context.Context, userID string, year, month int) (core.MonthlyReport, error) {
	if err := validPeriod(year, month, false); err != nil {
		return core.MonthlyReport{}, err
	}
	var tok cache.FillToken
	if s.reports != nil {
		if r, ok := s.reports.Get(userID, year, month); ok {
			return r, nil
		}
		tok = s.reports.Token(userID, year, month)
	}

	txs, err := s.repo.ListTransactions(ctx, userID, store.ListFilter{Year: year, Month: month})
	if err != nil {
		return core.MonthlyReport{}, fmt.Errorf("list transactions: %w", err)
	}
	r := report.Monthly(year, month, report.Records(txs))

	if s.reports != nil && !s.reports.Fill(tok, r) {
		slog.DebugContext(ctx, "Report changed while computing, not cached",
			"user_id", userID, "year", year, "month", month)
	}
	return r, nil
}

// Ping reports whether the backing store is reachable.
func (s *TransactionService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Close waits for in-flight publishes.
func (s *TransactionService) Close() error {
	s.wg.Wait()
	return nil
}

func (s *TransactionService) invalidate(userID string, ts time.Time) {
	if s.reports == nil {
		return
	}
	ts = ts.UTC()
	s.reports.InvalidateMonth(userID, ts.Year(), int(ts.Month()))
}

func (s *TransactionService) publishCreated(ctx context.Context, t core.StoredTransaction) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping transaction.created", "transaction_id", t.ID)
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.publisher.PublishTransactionCreated(ctx, t.ID, t.UserID, 1); err != nil {
			slog.ErrorContext(ctx, "Failed to publish transaction.created",
				"transaction_id", t.ID, "error", err)
		}
	}()
}

func validPeriod(year, month int, yearOnly bool) error {
	if year < 1 || year > 9999 {
		return fmt.Errorf("%w: year %d", ErrInvalidPeriod, year)
	}
	if !yearOnly && (month < 1 || month > 12) {
		return fmt.Errorf("%w: month %d", ErrInvalidPeriod, month)
	}
	return nil
}
