package product

import (
	"context"

	"storefront/internal/domain"
)

// ListFilter narrows catalog listings. Zero values mean no filter.
type ListFilter struct {
	Category string
	Query    string
	Limit    int
}

// UpdateInput carries admin edits. Nil fields are left unchanged; ClearOffer removes the offer price.
type UpdateInput struct {
	PriceCents      *int64
	OfferPriceCents *int64
	ClearOffer      bool
	Stock           *int
}

type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error)
	Stock(ctx context.Context, id string) (int, error)
	DecrementStock(ctx context.Context, id string, qty int) error
}
