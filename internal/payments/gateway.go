// Package payments initiates M-PESA STK push payments through a gateway.
package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"kashela/internal/core"
)

var ErrUnknownTransaction = errors.New("transaction not found")

// STKRequest asks the gateway to prompt PhoneNumber for Amount.
type STKRequest struct {
	PhoneNumber string
	Amount      decimal.Decimal
	Description string
	Reference   string
}

// Result is the gateway's answer to an STK push.
type Result struct {
	TransactionID     string
	CheckoutRequestID string
	Status            core.PaymentStatus
	Message           string
}

// Gateway is a mobile-money provider.
type Gateway interface {
	InitiateSTKPush(ctx context.Context, req STKRequest) (Result, error)
	// Status looks up a payment by the id returned in Result.
	Status(ctx context.Context, transactionID string) (core.PaymentStatus, error)
	// Mode is "mock" or "daraja".
	Mode() string
}
