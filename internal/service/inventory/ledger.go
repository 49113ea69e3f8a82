// Package inventory answers stock questions and applies decrements for whatever store it
// is given: the product repository for standalone checks, or a settlement transaction
// holding the product row locks.
package inventory

import (
	"context"
	"errors"
	"io"
	"log"

	"storefront/internal/domain"
)

type StockStore interface {
	Stock(ctx context.Context, productID string) (int, error)
	DecrementStock(ctx context.Context, productID string, qty int) error
}

type Ledger struct {
	store  StockStore
	logger *log.Logger
}

func New(store StockStore, logger *log.Logger) *Ledger {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Ledger{store: store, logger: logger}
}

// CheckStock reports whether quantity units are currently available.
func (l *Ledger) CheckStock(ctx context.Context, productID string, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, domain.NewValidationError("quantity", "must be at least 1")
	}
	stock, err := l.store.Stock(ctx, productID)
	if err != nil {
		return false, err
	}
	return stock >= quantity, nil
}

// Decrement removes quantity units. A NegativeStockError here means a caller skipped the
// locking check; it is logged loudly and returned unchanged.
func (l *Ledger) Decrement(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return domain.NewValidationError("quantity", "must be at least 1")
	}
	err := l.store.DecrementStock(ctx, productID, quantity)
	var neg *domain.NegativeStockError
	if errors.As(err, &neg) {
		l.logger.Printf("inventory: BUG stock would go negative product_id=%s requested=%d", productID, quantity)
	}
	return err
}
