package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSuccess   PaymentStatus = "success"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment is an STK push initiated on behalf of a user.
type Payment struct {
	TransactionID     string          `json:"transaction_id"`
	UserID            string          `json:"user_id"`
	PhoneNumber       string          `json:"phone_number"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description,omitempty"`
	Status            PaymentStatus   `json:"status"`
	Mode              string          `json:"mode"`
	CheckoutRequestID string          `json:"checkout_request_id,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}
