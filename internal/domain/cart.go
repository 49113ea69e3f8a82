package domain

import "time"

// Cart is the per-user collection of line items. It is created lazily on first add
// and emptied, never deleted, on checkout.
type Cart struct {
	ID        string     `json:"id,omitempty"`
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CartItem struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	Product   *Product  `json:"product,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// SubtotalCents prices the cart with current effective prices. Items without a
// resolved product are skipped.
func (c *Cart) SubtotalCents() int64 {
	if c == nil {
		return 0
	}
	var total int64
	for _, item := range c.Items {
		if item.Product == nil {
			continue
		}
		total += item.Product.EffectivePriceCents() * int64(item.Quantity)
	}
	return total
}
