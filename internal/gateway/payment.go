package gateway

import (
	"context"
	"log"

	"github.com/google/uuid"

	"commerce-backend/internal/domain"
)

// PaymentResult is the gateway's verdict on a charge attempt.
type PaymentResult struct {
	Approved      bool
	TransactionID string
	Reason        string
}

// PaymentGateway charges an order's grand total.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, order *domain.Order, method string) (PaymentResult, error)
}

// MockGateway approves every charge with a generated transaction id. A
// DeclineReason can be set to force declines in tests and demos.
type MockGateway struct {
	DeclineReason string
}

// NewMockGateway creates a gateway that approves everything.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (g *MockGateway) ProcessPayment(_ context.Context, order *domain.Order, method string) (PaymentResult, error) {
	if g.DeclineReason != "" {
		log.Printf("INFO: mock gateway declined order %s: %s", order.Number, g.DeclineReason)
		return PaymentResult{Approved: false, Reason: g.DeclineReason}, nil
	}
	txid := uuid.NewString()
	log.Printf("INFO: mock gateway approved order %s via %s, transaction %s", order.Number, method, txid)
	return PaymentResult{Approved: true, TransactionID: txid}, nil
}
