// Package worker copies stored transactions into the spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kashela/internal/amqp"
	"kashela/internal/core"
	klog "kashela/internal/log"
	"kashela/internal/storage"
	"kashela/internal/store"
)

// Mirror is the spreadsheet side of the sync.
type Mirror interface {
	AppendTransaction(ctx context.Context, t core.StoredTransaction) (string, error)
	HasTransaction(ctx context.Context, t core.StoredTransaction) (bool, error)
}

// Tracker records the mirror state of each stored transaction.
type Tracker interface {
	GetPendingMirror(ctx context.Context, limit int) ([]storage.PendingMirror, error)
	MarkMirrored(ctx context.Context, id string) error
	MarkMirrorError(ctx context.Context, id string) error
}

// SyncWorker handles synchronization of transactions from SQLite to Google Sheets
type SyncWorker struct {
	transactions store.TransactionReader
	tracker      Tracker
	sheets       Mirror
	batchSize    int
	retryDelay   time.Duration
}

func NewSyncWorker(transactions store.TransactionReader, tracker Tracker, sheets Mirror, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		transactions: transactions,
		tracker:      tracker,
		sheets:       sheets,
		batchSize:    batchSize,
		retryDelay:   2 * time.Second,
	}
}

// HandleTransactionCreated mirrors the transaction named by msg. An error
// requeues the message, so failures are delayed to avoid a hot redelivery loop.
func (w *SyncWorker) HandleTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error {
	slog.InfoContext(ctx, "Processing transaction.created",
		klog.FieldTransactionID, msg.ID,
		"version", msg.Version)

	t, err := w.transactions.GetTransaction(ctx, msg.UserID, msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted before the worker got to it.
		slog.WarnContext(ctx, "Transaction no longer exists, skipping", klog.FieldTransactionID, msg.ID)
		return nil
	}
	if err != nil {
		return w.delayed(ctx, fmt.Errorf("get transaction from storage: %w", err))
	}

	if err := w.mirror(ctx, t); err != nil {
		return w.delayed(ctx, err)
	}
	return nil
}

// ProcessPending mirrors one batch of rows still marked pending. It is the
// backstop for events lost while the broker was unavailable.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processBatch(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger batch when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

// Run sweeps pending rows every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", klog.FieldError, err)
			}
		}
	}
}

func (w *SyncWorker) processBatch(ctx context.Context, limit int) (int, error) {
	pending, err := w.tracker.GetPendingMirror(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		t, err := w.transactions.GetTransaction(ctx, p.UserID, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", klog.FieldTransactionID, p.ID, klog.FieldError, err)
			if err := w.tracker.MarkMirrorError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", klog.FieldTransactionID, p.ID, klog.FieldError, err)
			}
			continue
		}
		if err := w.mirror(ctx, t); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", klog.FieldTransactionID, p.ID, klog.FieldError, err)
			continue
		}
		synced++
	}
	return synced, nil
}

// mirror appends t unless a row with its id is already present.
func (w *SyncWorker) mirror(ctx context.Context, t core.StoredTransaction) error {
	exists, err := w.sheets.HasTransaction(ctx, t)
	if err != nil {
		w.markError(ctx, t.ID)
		return fmt.Errorf("check sheet for transaction: %w", err)
	}
	if exists {
		slog.InfoContext(ctx, "Transaction already mirrored", klog.FieldTransactionID, t.ID)
		w.markMirrored(ctx, t.ID)
		return nil
	}

	ref, err := w.sheets.AppendTransaction(ctx, t)
	if err != nil {
		w.markError(ctx, t.ID)
		return fmt.Errorf("append to sheets: %w", err)
	}
	w.markMirrored(ctx, t.ID)

	slog.InfoContext(ctx, "Successfully synced transaction",
		klog.FieldTransactionID, t.ID,
		"sheets_ref", ref,
		klog.FieldTxType, t.Type,
		klog.FieldCategory, t.Category)
	return nil
}

func (w *SyncWorker) markMirrored(ctx context.Context, id string) {
	// The row is in the sheet; a failed status update only means a later
	// sweep finds it again and skips it.
	if err := w.tracker.MarkMirrored(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", klog.FieldTransactionID, id, klog.FieldError, err)
	}
}

func (w *SyncWorker) markError(ctx context.Context, id string) {
	if err := w.tracker.MarkMirrorError(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark sync error", klog.FieldTransactionID, id, klog.FieldError, err)
	}
}

func (w *SyncWorker) delayed(ctx context.Context, err error) error {
	if w.retryDelay <= 0 {
		return err
	}
	timer := time.NewTimer(w.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
	return err
}
