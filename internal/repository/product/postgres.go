package product

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

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

// Columns is the canonical select list consumed by Scan.
const Columns = `id::text, key, name, description, category, unit, price_cents, offer_price_cents, stock, created_at, updated_at`

// Scan reads a row selected with Columns.
func Scan(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(
		&p.ID,
		&p.Key,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Unit,
		&p.PriceCents,
		&p.OfferPriceCents,
		&p.Stock,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.Product, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 200
	}
	q := `
SELECT ` + Columns + `
FROM products
WHERE ($1 = '' OR category = $1)
  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
ORDER BY created_at DESC, id
LIMIT $3
`
	rows, err := r.pool.Query(ctx, q, strings.TrimSpace(filter.Category), strings.TrimSpace(filter.Query), limit)
	if err != nil {
		r.logger.Printf("product repo: list category=%q error=%v", filter.Category, err)
		return nil, err
	}
	defer rows.Close()

	result := []domain.Product{}
	for rows.Next() {
		p, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		r.logger.Printf("product repo: list rows error=%v", err)
		return nil, err
	}
	r.logger.Printf("product repo: list category=%q count=%d", filter.Category, len(result))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := Scan(r.pool.QueryRow(ctx, `SELECT `+Columns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.Printf("product repo: get id=%s not found", id)
		} else {
			r.logger.Printf("product repo: get id=%s error=%v", id, err)
		}
		return nil, err
	}
	return p, nil
}

// Upsert inserts or replaces a product by key. Stock is set absolutely.
func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	q := `
INSERT INTO products (key, name, description, category, unit, price_cents, offer_price_cents, stock)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (key) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    category = EXCLUDED.category,
    unit = EXCLUDED.unit,
    price_cents = EXCLUDED.price_cents,
    offer_price_cents = EXCLUDED.offer_price_cents,
    stock = EXCLUDED.stock,
    updated_at = now()
RETURNING ` + Columns
	res, err := Scan(r.pool.QueryRow(ctx, q,
		product.Key,
		product.Name,
		product.Description,
		product.Category,
		product.Unit,
		product.PriceCents,
		product.OfferPriceCents,
		product.Stock,
	))
	if err != nil {
		r.logger.Printf("product repo: upsert key=%s error=%v", product.Key, err)
		return nil, err
	}
	r.logger.Printf("product repo: upserted key=%s id=%s stock=%d", res.Key, res.ID, res.Stock)
	return res, nil
}

// Update applies admin edits under a row lock so an absolute stock set serializes
// with in-flight settlements holding the same row.
func (r *postgresRepo) Update(ctx context.Context, id string, in UpdateInput) (*domain.Product, error) {
	var out *domain.Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := Scan(tx.QueryRow(ctx, `SELECT `+Columns+` FROM products WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if in.PriceCents != nil {
			current.PriceCents = *in.PriceCents
		}
		if in.ClearOffer {
			current.OfferPriceCents = nil
		} else if in.OfferPriceCents != nil {
			current.OfferPriceCents = in.OfferPriceCents
		}
		if in.Stock != nil {
			current.Stock = *in.Stock
		}
		out, err = Scan(tx.QueryRow(ctx, `
UPDATE products
SET price_cents = $2, offer_price_cents = $3, stock = $4, updated_at = now()
WHERE id = $1
RETURNING `+Columns, id, current.PriceCents, current.OfferPriceCents, current.Stock))
		return err
	})
	if err != nil {
		r.logger.Printf("product repo: update id=%s error=%v", id, err)
		return nil, err
	}
	r.logger.Printf("product repo: updated id=%s price=%d stock=%d", id, out.PriceCents, out.Stock)
	return out, nil
}

func (r *postgresRepo) Stock(ctx context.Context, id string) (int, error) {
	return NewStockQueries(r.pool).Stock(ctx, id)
}

func (r *postgresRepo) DecrementStock(ctx context.Context, id string, qty int) error {
	return NewStockQueries(r.pool).DecrementStock(ctx, id, qty)
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
		case "22P02":
			return domain.ErrNotFound
		}
	}
	return err
}
