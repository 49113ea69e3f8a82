package payment

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

const columns = `id::text, processor, reference, user_id::text, amount_cents, currency, status,
COALESCE(payment_id, ''), COALESCE(order_id::text, ''), created_at, updated_at`

func scan(row pgx.Row) (*domain.PaymentTransaction, error) {
	var t domain.PaymentTransaction
	if err := row.Scan(
		&t.ID,
		&t.Processor,
		&t.Reference,
		&t.UserID,
		&t.AmountCents,
		&t.Currency,
		&t.Status,
		&t.PaymentID,
		&t.OrderID,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (r *postgresRepo) Create(ctx context.Context, txn domain.PaymentTransaction) (*domain.PaymentTransaction, error) {
	out, err := scan(r.pool.QueryRow(ctx, `
INSERT INTO payment_transactions (processor, reference, user_id, amount_cents, currency, status)
VALUES ($1, $2, $3, $4, $5, 'CREATED')
RETURNING `+columns, txn.Processor, txn.Reference, txn.UserID, txn.AmountCents, txn.Currency))
	if err != nil {
		r.logger.Printf("payment repo: create processor=%s reference=%s error=%v", txn.Processor, txn.Reference, err)
		return nil, err
	}
	r.logger.Printf("payment repo: created processor=%s reference=%s amount=%d", out.Processor, out.Reference, out.AmountCents)
	return out, nil
}

func (r *postgresRepo) GetByReference(ctx context.Context, reference string) (*domain.PaymentTransaction, error) {
	return scan(r.pool.QueryRow(ctx, `SELECT `+columns+` FROM payment_transactions WHERE reference = $1`, reference))
}

func (r *postgresRepo) MarkVerified(ctx context.Context, reference, paymentID string) (*domain.PaymentTransaction, error) {
	out, err := scan(r.pool.QueryRow(ctx, `
UPDATE payment_transactions
SET status = 'VERIFIED', payment_id = $2, updated_at = now()
WHERE reference = $1 AND status IN ('CREATED', 'FAILED')
RETURNING `+columns, reference, paymentID))
	if err == nil {
		r.logger.Printf("payment repo: verified reference=%s payment_id=%s", reference, paymentID)
		return out, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		r.logger.Printf("payment repo: verify reference=%s error=%v", reference, err)
		return nil, err
	}

	existing, err := r.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if existing.PaymentID == paymentID {
		return existing, nil
	}
	r.logger.Printf("payment repo: verify reference=%s conflicting payment_id=%s existing=%s status=%s",
		reference, paymentID, existing.PaymentID, existing.Status)
	return nil, domain.ErrAlreadyExists
}

func (r *postgresRepo) MarkFailed(ctx context.Context, reference string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE payment_transactions
SET status = 'FAILED', updated_at = now()
WHERE reference = $1 AND status = 'CREATED'
`, reference)
	if err != nil {
		r.logger.Printf("payment repo: mark failed reference=%s error=%v", reference, err)
		return mapErr(err)
	}
	return nil
}

// Queries exposes the settlement-side operation on a caller's transaction.
type Queries struct {
	q db.DBTX
}

func NewQueries(q db.DBTX) *Queries {
	return &Queries{q: q}
}

// Consume binds a VERIFIED transaction owned by userID to orderID exactly once.
// It returns domain.ErrNotFound when no such transaction is available.
func (p *Queries) Consume(ctx context.Context, paymentID, userID, orderID string) (*domain.PaymentTransaction, error) {
	return scan(p.q.QueryRow(ctx, `
UPDATE payment_transactions
SET status = 'CONSUMED', order_id = $3, updated_at = now()
WHERE payment_id = $1 AND user_id = $2 AND status = 'VERIFIED'
RETURNING `+columns, paymentID, userID, orderID))
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
