package payment

import (
	"context"

	"storefront/internal/domain"
)

// Repository tracks gateway transactions from creation through consumption by an order.
type Repository interface {
	Create(ctx context.Context, txn domain.PaymentTransaction) (*domain.PaymentTransaction, error)
	GetByReference(ctx context.Context, reference string) (*domain.PaymentTransaction, error)
	// MarkVerified moves a CREATED or FAILED transaction to VERIFIED. Repeating it with
	// the same payment id is a no-op; any other conflict returns domain.ErrAlreadyExists.
	MarkVerified(ctx context.Context, reference, paymentID string) (*domain.PaymentTransaction, error)
	MarkFailed(ctx context.Context, reference string) error
}
