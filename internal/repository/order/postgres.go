package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"storefront/internal/db"
	"storefront/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const columns = `id::text, user_id::text, address, total_cents, currency, payment_method,
COALESCE(payment_id, ''), current_status, preparing_at, dispatched_at, delivered_at,
estimated_delivery_date, expected_delivery_date, COALESCE(idempotency_key, ''), created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		address      []byte
		preparingAt  time.Time
		dispatchedAt *time.Time
		deliveredAt  *time.Time
	)
	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&address,
		&o.TotalCents,
		&o.Currency,
		&o.PaymentMethod,
		&o.PaymentID,
		&o.CurrentStatus,
		&preparingAt,
		&dispatchedAt,
		&deliveredAt,
		&o.EstimatedDeliveryDate,
		&o.ExpectedDeliveryDate,
		&o.IdempotencyKey,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	if err := json.Unmarshal(address, &o.Address); err != nil {
		return nil, fmt.Errorf("decode address for order %s: %w", o.ID, err)
	}
	o.Timeline.Preparing = domain.StatusStep{Status: true, Date: &preparingAt}
	o.Timeline.Dispatched = domain.StatusStep{Status: dispatchedAt != nil, Date: dispatchedAt}
	o.Timeline.Delivered = domain.StatusStep{Status: deliveredAt != nil, Date: deliveredAt}
	o.Items = []domain.OrderItem{}
	return &o, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("order repo: get id=%s error=%v", id, err)
		}
		return nil, err
	}
	if err := loadItems(ctx, r.pool, o); err != nil {
		r.logger.Printf("order repo: items id=%s error=%v", id, err)
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) GetByIdempotencyKey(ctx context.Context, userID, key string) (*domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM orders WHERE user_id = $1 AND idempotency_key = $2`, userID, key))
	if err != nil {
		return nil, err
	}
	if err := loadItems(ctx, r.pool, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	out, err := r.list(ctx, `SELECT `+columns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		r.logger.Printf("order repo: list user_id=%s error=%v", userID, err)
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) ListAll(ctx context.Context) ([]domain.Order, error) {
	out, err := r.list(ctx, `SELECT `+columns+` FROM orders ORDER BY created_at DESC, id`)
	if err != nil {
		r.logger.Printf("order repo: list all error=%v", err)
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	var (
		orders []*domain.Order
		ids    []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(orders))
	if len(orders) == 0 {
		return out, nil
	}

	items, err := itemsFor(ctx, r.pool, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		if its, ok := items[o.ID]; ok {
			o.Items = its
		}
		out = append(out, *o)
	}
	return out, nil
}

func loadItems(ctx context.Context, q db.DBTX, o *domain.Order) error {
	items, err := itemsFor(ctx, q, []string{o.ID})
	if err != nil {
		return err
	}
	if its, ok := items[o.ID]; ok {
		o.Items = its
	}
	return nil
}

func itemsFor(ctx context.Context, q db.DBTX, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := q.Query(ctx, `
SELECT order_id::text, product_id::text, name, quantity, unit_price_cents
FROM order_items
WHERE order_id = ANY($1::uuid[])
ORDER BY order_id, position
`, orderIDs)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Quantity, &item.UnitPriceCents); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], item)
	}
	return out, rows.Err()
}

func (r *postgresRepo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(newSettlementTx(tx))
	})
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, mutate func(tx Tx, o *domain.Order) error) (*domain.Order, error) {
	var updated *domain.Order
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+columns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := loadItems(ctx, tx, o); err != nil {
			return err
		}
		if err := mutate(newSettlementTx(tx), o); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
UPDATE orders
SET current_status = $2,
    dispatched_at = $3,
    delivered_at = $4,
    expected_delivery_date = $5,
    updated_at = $6
WHERE id = $1
`, o.ID, o.CurrentStatus, o.Timeline.Dispatched.Date, o.Timeline.Delivered.Date, o.ExpectedDeliveryDate, o.UpdatedAt)
		if err != nil {
			return mapErr(err)
		}
		updated = o
		return nil
	})
	if err != nil {
		r.logger.Printf("order repo: update status id=%s error=%v", id, err)
		return nil, err
	}
	r.logger.Printf("order repo: update status id=%s status=%s", id, updated.CurrentStatus)
	return updated, nil
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return domain.ErrAlreadyExists
		case "23503", "22P02":
			return domain.ErrNotFound
		}
	}
	return err
}
