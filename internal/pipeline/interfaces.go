package pipeline

import (
	"context"

	"github.com/dvloznov/expense-intel/internal/domain"
	"github.com/dvloznov/expense-intel/internal/insight"
)

// Enricher generates a model-backed description for a stored transaction.
// This interface enables mocking; the concrete implementation is
// insight.Engine.
type Enricher interface {
	GenerateInsight(ctx context.Context, txn domain.Transaction, corr domain.CorrelationResult) (insight.Insight, error)
}

// PaymentVerifier decides whether an uncertain notification (amount present
// but no payment verb) is a real payment. Implementations must answer false
// when unsure.
type PaymentVerifier interface {
	VerifyPayment(ctx context.Context, text string) bool
}
