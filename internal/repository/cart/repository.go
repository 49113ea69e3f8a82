package cart

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// GetByUser returns the user's cart with resolved products. A user without a cart
	// row gets an empty cart, not ErrNotFound.
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	SetQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}
