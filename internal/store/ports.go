// Package store declares the persistence ports used by the services.
package store

import (
	"context"
	"errors"

	"kashela/internal/core"
)

var ErrNotFound = errors.New("not found")

// ListFilter narrows a user's transaction listing. Zero Year means no date
// filter; Month is ignored when Year is zero.
type ListFilter struct {
	Year  int
	Month int
	Limit int
}

func (f ListFilter) Matches(t core.StoredTransaction) bool {
	if f.Year == 0 {
		return true
	}
	if f.Month == 0 {
		return t.Timestamp.Year() == f.Year
	}
	return t.InMonth(f.Year, f.Month)
}

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		InsertTransaction(ctx context.Context, t core.StoredTransaction) error
	}

	TransactionReader interface {
		// GetTransaction returns ErrNotFound when id does not belong to userID.
		GetTransaction(ctx context.Context, userID, id string) (core.StoredTransaction, error)
		// ListTransactions returns newest first.
		ListTransactions(ctx context.Context, userID string, f ListFilter) ([]core.StoredTransaction, error)
	}

	TransactionDeleter interface {
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	PaymentStore interface {
		SavePayment(ctx context.Context, p core.Payment) error
		GetPayment(ctx context.Context, userID, transactionID string) (core.Payment, error)
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}

	// Repository is everything a data backend must provide.
	Repository interface {
		TransactionWriter
		TransactionReader
		TransactionDeleter
		PaymentStore
		Pinger
	}
)
