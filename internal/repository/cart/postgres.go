package cart

import (
	"context"
	"errors"
	"io"
	"log"

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

func (r *postgresRepo) GetByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	cart, err := NewQueries(r.pool).Load(ctx, userID, false)
	if err != nil {
		r.logger.Printf("cart repo: get user_id=%s error=%v", userID, err)
		return nil, err
	}
	return cart, nil
}

func (r *postgresRepo) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		cartID, err := ensureCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
INSERT INTO cart_items (cart_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (cart_id, product_id) DO UPDATE
SET quantity = cart_items.quantity + EXCLUDED.quantity
`, cartID, productID, quantity)
		return err
	})
	if err != nil {
		r.logger.Printf("cart repo: add user_id=%s product_id=%s qty=%d error=%v", userID, productID, quantity, err)
		return mapErr(err)
	}
	r.logger.Printf("cart repo: add user_id=%s product_id=%s qty=%d", userID, productID, quantity)
	return nil
}

func (r *postgresRepo) SetQuantity(ctx context.Context, userID, productID string, quantity int) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE cart_items ci
SET quantity = $3
FROM carts c
WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.product_id = $2
`, userID, productID, quantity)
	if err != nil {
		r.logger.Printf("cart repo: set quantity user_id=%s product_id=%s error=%v", userID, productID, err)
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) RemoveItem(ctx context.Context, userID, productID string) error {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM cart_items ci
USING carts c
WHERE ci.cart_id = c.id AND c.user_id = $1 AND ci.product_id = $2
`, userID, productID)
	if err != nil {
		r.logger.Printf("cart repo: remove user_id=%s product_id=%s error=%v", userID, productID, err)
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, userID string) error {
	n, err := NewQueries(r.pool).Clear(ctx, userID)
	if err != nil {
		r.logger.Printf("cart repo: clear user_id=%s error=%v", userID, err)
		return err
	}
	r.logger.Printf("cart repo: clear user_id=%s removed=%d", userID, n)
	return nil
}

func ensureCart(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
INSERT INTO carts (user_id)
VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET updated_at = now()
RETURNING id::text
`, userID).Scan(&id)
	return id, err
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503", "22P02":
			return domain.ErrNotFound
		case "23505":
			return domain.ErrAlreadyExists
		}
	}
	return err
}

// Queries runs cart reads and clears on a pool or inside a caller's transaction.
type Queries struct {
	q db.DBTX
}

func NewQueries(q db.DBTX) *Queries {
	return &Queries{q: q}
}

// Load reads the cart with resolved products. With lock set, the cart row is locked
// FOR UPDATE so concurrent adds wait for the caller's transaction.
func (c *Queries) Load(ctx context.Context, userID string, lock bool) (*domain.Cart, error) {
	cartQuery := `SELECT id::text, user_id::text, created_at, updated_at FROM carts WHERE user_id = $1`
	if lock {
		cartQuery += ` FOR UPDATE`
	}
	cart := domain.Cart{UserID: userID, Items: []domain.CartItem{}}
	err := c.q.QueryRow(ctx, cartQuery, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if mapped := mapErr(err); errors.Is(mapped, domain.ErrNotFound) {
			return &cart, nil
		}
		return nil, err
	}

	rows, err := c.q.Query(ctx, `
SELECT ci.product_id::text, ci.quantity, ci.added_at,
       p.id::text, p.key, p.name, p.description, p.category, p.unit, p.price_cents, p.offer_price_cents, p.stock, p.created_at, p.updated_at
FROM cart_items ci
JOIN products p ON p.id = ci.product_id
WHERE ci.cart_id = $1
ORDER BY ci.added_at ASC, ci.product_id
`, cart.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		var p domain.Product
		if err := rows.Scan(
			&item.ProductID,
			&item.Quantity,
			&item.AddedAt,
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
			return nil, err
		}
		item.Product = &p
		cart.Items = append(cart.Items, item)
	}
	return &cart, rows.Err()
}

// Clear empties the cart and reports how many lines were removed. Clearing an empty
// or missing cart is not an error.
func (c *Queries) Clear(ctx context.Context, userID string) (int64, error) {
	cmd, err := c.q.Exec(ctx, `
DELETE FROM cart_items ci
USING carts c
WHERE ci.cart_id = c.id AND c.user_id = $1
`, userID)
	if err != nil {
		return 0, mapErr(err)
	}
	return cmd.RowsAffected(), nil
}
