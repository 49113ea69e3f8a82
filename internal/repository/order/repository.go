package order

import (
	"context"

	"storefront/internal/domain"
)

// Tx is the unit of work a settlement runs in. Every call goes through the same database
// transaction, so either all writes land or none do.
type Tx interface {
	// LoadCart reads the cart with resolved products and locks the cart row.
	LoadCart(ctx context.Context, userID string) (*domain.Cart, error)
	// LockProducts row-locks products in id order and returns their current state.
	LockProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
	Stock(ctx context.Context, productID string) (int, error)
	DecrementStock(ctx context.Context, productID string, qty int) error
	ConsumePayment(ctx context.Context, paymentID, userID, orderID string) (*domain.PaymentTransaction, error)
	InsertOrder(ctx context.Context, o *domain.Order) error
	ClearCart(ctx context.Context, userID string) error
	Enqueue(ctx context.Context, topic, key string, payload any) error
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error)
	// InTx commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// UpdateStatus locks the order, lets mutate change it and persists the status fields
	// in the same transaction.
	UpdateStatus(ctx context.Context, id string, mutate func(tx Tx, o *domain.Order) error) (*domain.Order, error)
}
