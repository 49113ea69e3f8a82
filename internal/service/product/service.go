package product

import (
	"context"
	"strings"

	"storefront/internal/domain"
	productrepo "storefront/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter productrepo.ListFilter) ([]domain.Product, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Query = strings.TrimSpace(filter.Query)
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 200
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id", "is required")
	}
	return s.repo.GetByID(ctx, id)
}

// Update applies an admin price/stock edit. Existing orders keep the prices they were
// placed with.
func (s *Service) Update(ctx context.Context, actor domain.Actor, id string, in productrepo.UpdateInput) (*domain.Product, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	if in.PriceCents != nil && *in.PriceCents < 0 {
		return nil, domain.NewValidationError("price", "must not be negative")
	}
	if in.OfferPriceCents != nil && *in.OfferPriceCents < 0 {
		return nil, domain.NewValidationError("offerPrice", "must not be negative")
	}
	if in.Stock != nil && *in.Stock < 0 {
		return nil, domain.NewValidationError("stock", "must not be negative")
	}
	if in.PriceCents == nil && in.OfferPriceCents == nil && in.Stock == nil && !in.ClearOffer {
		return nil, domain.NewValidationError("", "nothing to update")
	}
	return s.repo.Update(ctx, id, in)
}
