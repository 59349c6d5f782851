package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kashela/internal/core"
	"kashela/internal/store"
)

// PayRequest is a user's request to pay from their phone.
type PayRequest struct {
	PhoneNumber string
	Amount      decimal.Decimal
	Description string
}

// Service validates payment requests, forwards them to a Gateway and keeps a
// record of every push.
type Service struct {
	gateway Gateway
	store   store.PaymentStore
	now     func() time.Time
}

func NewService(gateway Gateway, ps store.PaymentStore) *Service {
	return &Service{gateway: gateway, store: ps, now: time.Now}
}

func (s *Service) Mode() string { return s.gateway.Mode() }

func (s *Service) Pay(ctx context.Context, userID string, req PayRequest) (core.Payment, Result, error) {
	if !req.Amount.IsPositive() {
		return core.Payment{}, Result{}, core.ErrInvalidAmount
	}
	phone, err := NormalizePhone(req.PhoneNumber)
	if err != nil {
		return core.Payment{}, Result{}, err
	}
	desc := strings.TrimSpace(req.Description)

	res, err := s.gateway.InitiateSTKPush(ctx, STKRequest{PhoneNumber: phone, Amount: req.Amount, Description: desc})
	if err != nil {
		return core.Payment{}, Result{}, fmt.Errorf("initiate payment: %w", err)
	}

	p := core.Payment{
		TransactionID:     res.TransactionID,
		UserID:            userID,
		PhoneNumber:       phone,
		Amount:            req.Amount,
		Description:       desc,
		Status:            res.Status,
		Mode:              s.gateway.Mode(),
		CheckoutRequestID: res.CheckoutRequestID,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.store.SavePayment(ctx, p); err != nil {
		return core.Payment{}, Result{}, fmt.Errorf("record payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment initiated",
		"component", "payments",
		"payment_id", p.TransactionID,
		"user_id", userID,
		"mode", p.Mode,
		"status", p.Status)
	return p, res, nil
}

// Status returns the latest status for a payment the user initiated. In mock
// mode any MOCK_ id is reported, stored or not.
func (s *Service) Status(ctx context.Context, userID, transactionID string) (core.PaymentStatus, error) {
	p, err := s.store.GetPayment(ctx, userID, transactionID)
	stored := err == nil
	switch {
	case errors.Is(err, store.ErrNotFound):
		if s.gateway.Mode() != "mock" {
			return "", store.ErrNotFound
		}
	case err != nil:
		return "", err
	}

	lookup := transactionID
	if stored && p.CheckoutRequestID != "" {
		lookup = p.CheckoutRequestID
	}
	status, err := s.gateway.Status(ctx, lookup)
	if errors.Is(err, ErrUnknownTransaction) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("payment status: %w", err)
	}

	if stored && status != p.Status {
		p.Status = status
		if err := s.store.SavePayment(ctx, p); err != nil {
			slog.WarnContext(ctx, "Failed to update payment status", "payment_id", transactionID, "error", err)
		}
	}
	return status, nil
}
