// Package memory is a process-local Repository used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"kashela/internal/core"
	"kashela/internal/store"
)

type Store struct {
	mu       sync.Mutex
	items    []core.StoredTransaction
	payments map[string]core.Payment
}

func New() *Store {
	return &Store{payments: map[string]core.Payment{}}
}

func (s *Store) InsertTransaction(_ context.Context, t core.StoredTransaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, t)
	return nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.StoredTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.items {
		if t.ID == id && t.UserID == userID {
			return t, nil
		}
	}
	return core.StoredTransaction{}, store.ErrNotFound
}

// ListTransactions returns the user's records newest first.
func (s *Store) ListTransactions(_ context.Context, userID string, f store.ListFilter) ([]core.StoredTransaction, error) {
	s.mu.Lock()
	out := make([]core.StoredTransaction, 0, len(s.items))
	for _, t := range s.items {
		if t.UserID == userID && f.Matches(t) {
			out = append(out, t)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.items {
		if t.ID == id && t.UserID == userID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) SavePayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.TransactionID] = p
	return nil
}

func (s *Store) GetPayment(_ context.Context, userID, transactionID string) (core.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[transactionID]
	if !ok || p.UserID != userID {
		return core.Payment{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len reports how many transactions are stored across all users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
