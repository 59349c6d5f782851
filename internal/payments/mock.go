package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"kashela/internal/core"
)

const mockPrefix = "MOCK_"

// MockGateway simulates successful payments without contacting M-PESA.
type MockGateway struct{}

func (MockGateway) Mode() string { return "mock" }

func (MockGateway) InitiateSTKPush(ctx context.Context, _ STKRequest) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return Result{
		TransactionID: mockPrefix + strings.ToUpper(hex[:8]),
		Status:        core.PaymentSuccess,
		Message:       "This is a simulated payment for testing purposes",
	}, nil
}

// Status reports every MOCK_ id as completed.
func (MockGateway) Status(_ context.Context, transactionID string) (core.PaymentStatus, error) {
	if !strings.HasPrefix(transactionID, mockPrefix) {
		return "", ErrUnknownTransaction
	}
	return core.PaymentCompleted, nil
}

// IsMockID reports whether id was issued by MockGateway.
func IsMockID(id string) bool {
	return strings.HasPrefix(id, mockPrefix)
}
