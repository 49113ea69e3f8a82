package order

import (
	"context"
	"encoding/json"

	"storefront/internal/domain"
	"storefront/internal/outbox"
	cartrepo "storefront/internal/repository/cart"
	paymentrepo "storefront/internal/repository/payment"
	productrepo "storefront/internal/repository/product"

	"github.com/jackc/pgx/v5"
)

type settlementTx struct {
	tx       pgx.Tx
	carts    *cartrepo.Queries
	stock    *productrepo.StockQueries
	payments *paymentrepo.Queries
}

func newSettlementTx(tx pgx.Tx) *settlementTx {
	return &settlementTx{
		tx:       tx,
		carts:    cartrepo.NewQueries(tx),
		stock:    productrepo.NewStockQueries(tx),
		payments: paymentrepo.NewQueries(tx),
	}
}

func (s *settlementTx) LoadCart(ctx context.Context, userID string) (*domain.Cart, error) {
	return s.carts.Load(ctx, userID, true)
}

func (s *settlementTx) LockProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	return s.stock.LockForUpdate(ctx, ids)
}

func (s *settlementTx) Stock(ctx context.Context, productID string) (int, error) {
	return s.stock.Stock(ctx, productID)
}

func (s *settlementTx) DecrementStock(ctx context.Context, productID string, qty int) error {
	return s.stock.DecrementStock(ctx, productID, qty)
}

func (s *settlementTx) ConsumePayment(ctx context.Context, paymentID, userID, orderID string) (*domain.PaymentTransaction, error) {
	return s.payments.Consume(ctx, paymentID, userID, orderID)
}

func (s *settlementTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	address, err := json.Marshal(o.Address)
	if err != nil {
		return err
	}

	var paymentID, idemKey *string
	if o.PaymentID != "" {
		paymentID = &o.PaymentID
	}
	if o.IdempotencyKey != "" {
		idemKey = &o.IdempotencyKey
	}

	_, err = s.tx.Exec(ctx, `
INSERT INTO orders (
    id, user_id, address, total_cents, currency, payment_method, payment_id, current_status,
    preparing_at, estimated_delivery_date, idempotency_key, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`, o.ID, o.UserID, address, o.TotalCents, o.Currency, o.PaymentMethod, paymentID, o.CurrentStatus,
		o.Timeline.Preparing.Date, o.EstimatedDeliveryDate, idemKey, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`
INSERT INTO order_items (order_id, position, product_id, name, quantity, unit_price_cents)
VALUES ($1, $2, $3, $4, $5, $6)
`, o.ID, i, item.ProductID, item.Name, item.Quantity, item.UnitPriceCents)
	}
	if err := s.tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapErr(err)
	}
	return nil
}

func (s *settlementTx) ClearCart(ctx context.Context, userID string) error {
	_, err := s.carts.Clear(ctx, userID)
	return err
}

func (s *settlementTx) Enqueue(ctx context.Context, topic, key string, payload any) error {
	_, err := outbox.Insert(ctx, s.tx, topic, key, payload)
	return err
}
