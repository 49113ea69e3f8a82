// Package testdb hands integration tests a migrated Postgres pool. It uses TEST_DB_DSN
// when set and otherwise starts a throwaway container, once per test binary.
package testdb

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"storefront/internal/migrate"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// Pool returns a pool on a freshly truncated schema. The pool is closed on test cleanup.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = startContainer(t)
	}

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		t.Skipf("postgres not reachable at TEST_DB_DSN: %v", err)
	}

	require.NoError(t, migrate.Apply(ctx, pool))
	Reset(t, pool)
	return pool
}

// Reset empties every application table.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
TRUNCATE outbox, payment_transactions, order_items, orders, cart_items, carts, products, tokens, customers
RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
}

func startContainer(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	containerOnce.Do(func() {
		ctx := context.Background()
		pg, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("storefront_test"),
			postgres.WithUsername("storefront"),
			postgres.WithPassword("storefront"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			containerErr = err
			return
		}
		containerDSN, containerErr = pg.ConnectionString(ctx, "sslmode=disable")
	})
	if containerErr != nil {
		t.Skipf("start postgres container: %v", containerErr)
	}
	return containerDSN
}

// Exec runs a fixture statement and fails the test on error.
func Exec(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) {
	t.Helper()
	_, err := pool.Exec(context.Background(), sql, args...)
	require.NoError(t, err)
}

// Customer inserts a customer row and returns its id.
func Customer(t *testing.T, pool *pgxpool.Pool, email string, admin bool) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(),
		`INSERT INTO customers (email, password_hash, name, is_admin) VALUES ($1, 'x', $1, $2) RETURNING id::text`,
		email, admin).Scan(&id)
	require.NoError(t, err)
	return id
}

// Product inserts a product row and returns its id.
func Product(t *testing.T, pool *pgxpool.Pool, key string, priceCents int64, stock int) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(),
		`INSERT INTO products (key, name, price_cents, stock) VALUES ($1, $1, $2, $3) RETURNING id::text`,
		key, priceCents, stock).Scan(&id)
	require.NoError(t, err)
	return id
}
