// Package seed loads a small grocery catalog and an admin account for local testing.
package seed

import (
	"context"
	"fmt"

	"storefront/internal/domain"
	customersvc "storefront/internal/service/customer"
)

type productUpserter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type adminPromoter interface {
	PromoteAdmin(ctx context.Context, in customersvc.SignupInput) (*domain.Customer, error)
}

func offer(cents int64) *int64 { return &cents }

// Products is the demo catalog. Stock values are absolute and reset on every run.
var Products = []domain.Product{
	{Key: "tomato-1kg", Name: "Tomato", Category: "vegetables", Unit: "1 kg", PriceCents: 4000, OfferPriceCents: offer(3500), Stock: 120},
	{Key: "onion-1kg", Name: "Onion", Category: "vegetables", Unit: "1 kg", PriceCents: 3500, Stock: 200},
	{Key: "basmati-5kg", Name: "Basmati Rice", Category: "grains", Unit: "5 kg", PriceCents: 65000, OfferPriceCents: offer(59900), Stock: 40},
	{Key: "toor-dal-1kg", Name: "Toor Dal", Category: "grains", Unit: "1 kg", PriceCents: 16000, Stock: 60},
	{Key: "alphonso-dozen", Name: "Alphonso Mango", Category: "fruits", Unit: "12 pcs", PriceCents: 90000, Stock: 15},
	{Key: "milk-1l", Name: "Toned Milk", Category: "dairy", Unit: "1 l", PriceCents: 6800, Stock: 0},
}

// Apply upserts the catalog and, when admin has an email, creates or promotes that
// account. It is safe to run repeatedly.
func Apply(ctx context.Context, products productUpserter, admins adminPromoter, admin customersvc.SignupInput) error {
	for _, p := range Products {
		if _, err := products.Upsert(ctx, p); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.Key, err)
		}
	}
	if admin.Email == "" {
		return nil
	}
	if _, err := admins.PromoteAdmin(ctx, admin); err != nil {
		return fmt.Errorf("promote admin %s: %w", admin.Email, err)
	}
	return nil
}
