package domain

import "time"

type Product struct {
	ID              string    `json:"id"`
	Key             string    `json:"key"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	Unit            string    `json:"unit,omitempty"`
	PriceCents      int64     `json:"priceCents"`
	OfferPriceCents *int64    `json:"offerPriceCents,omitempty"`
	Stock           int       `json:"stock"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// EffectivePriceCents is the offer price when one is set and lower than the list price.
func (p Product) EffectivePriceCents() int64 {
	if p.OfferPriceCents != nil && *p.OfferPriceCents < p.PriceCents {
		return *p.OfferPriceCents
	}
	return p.PriceCents
}
