package product

import (
	"context"
	"sort"

	"storefront/internal/db"
	"storefront/internal/domain"
)

// StockQueries reads and mutates the stock counter on whatever DBTX it is given.
// Inside a settlement transaction that is the pgx.Tx holding the product row locks.
type StockQueries struct {
	q db.DBTX
}

func NewStockQueries(q db.DBTX) *StockQueries {
	return &StockQueries{q: q}
}

func (s *StockQueries) Stock(ctx context.Context, id string) (int, error) {
	var stock int
	if err := s.q.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock); err != nil {
		return 0, mapErr(err)
	}
	return stock, nil
}

// DecrementStock only succeeds when the remaining stock covers qty.
func (s *StockQueries) DecrementStock(ctx context.Context, id string, qty int) error {
	cmd, err := s.q.Exec(ctx, `
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND stock >= $2
`, id, qty)
	if err != nil {
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return &domain.NegativeStockError{ProductID: id, Requested: qty}
	}
	return nil
}

// LockForUpdate loads and row-locks the given products in ascending id order so that
// concurrent settlements over overlapping products cannot deadlock.
func (s *StockQueries) LockForUpdate(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	rows, err := s.q.Query(ctx, `
SELECT `+Columns+`
FROM products
WHERE id = ANY($1::uuid[])
ORDER BY id
FOR UPDATE
`, sorted)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make(map[string]domain.Product, len(sorted))
	for rows.Next() {
		p, err := Scan(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = *p
	}
	return out, rows.Err()
}
