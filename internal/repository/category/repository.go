package category

import (
	"context"

	"storefront/internal/domain"
)

type Repository interface {
	// List returns every non-empty product category ordered by name.
	List(ctx context.Context) ([]domain.Category, error)
}
