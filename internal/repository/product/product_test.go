package product

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/testdb"
)

func TestPostgres_ListAndGet(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(t)

	pid := testdb.Product(t, pool, "tomato", 100, 5)
	testdb.Product(t, pool, "onion", 40, 0)

	repo := NewPostgres(pool, nil)

	list, err := repo.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 products, got %d", len(list))
	}

	got, err := repo.GetByID(ctx, pid)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Key != "tomato" || got.PriceCents != 100 || got.Stock != 5 {
		t.Fatalf("unexpected product %+v", got)
	}

	if _, err := repo.GetByID(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestPostgres_UpsertSetsStockAbsolutely(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(t)
	repo := NewPostgres(pool, nil)

	offer := int64(90)
	first, err := repo.Upsert(ctx, domain.Product{Key: "mango", Name: "Mango", PriceCents: 120, OfferPriceCents: &offer, Stock: 10, Unit: "kg"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second, err := repo.Upsert(ctx, domain.Product{Key: "mango", Name: "Mango", PriceCents: 130, Stock: 3, Unit: "kg"})
	if err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same id, got %s and %s", first.ID, second.ID)
	}
	if second.Stock != 3 || second.OfferPriceCents != nil || second.PriceCents != 130 {
		t.Fatalf("unexpected product after upsert %+v", second)
	}
}

func TestPostgres_UpdatePartial(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(t)
	repo := NewPostgres(pool, nil)
	pid := testdb.Product(t, pool, "rice", 500, 8)

	offer := int64(450)
	updated, err := repo.Update(ctx, pid, UpdateInput{OfferPriceCents: &offer})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.PriceCents != 500 || updated.Stock != 8 || updated.EffectivePriceCents() != 450 {
		t.Fatalf("unexpected product %+v", updated)
	}

	stock := 0
	updated, err = repo.Update(ctx, pid, UpdateInput{Stock: &stock, ClearOffer: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Stock != 0 || updated.OfferPriceCents != nil {
		t.Fatalf("unexpected product %+v", updated)
	}
}

func TestStockQueries_DecrementIsConditional(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(t)
	repo := NewPostgres(pool, nil)
	pid := testdb.Product(t, pool, "salt", 10, 2)

	if err := repo.DecrementStock(ctx, pid, 2); err != nil {
		t.Fatalf("DecrementStock: %v", err)
	}
	err := repo.DecrementStock(ctx, pid, 1)
	var negErr *domain.NegativeStockError
	if !errors.As(err, &negErr) || negErr.ProductID != pid {
		t.Fatalf("expected NegativeStockError, got %v", err)
	}
	stock, err := repo.Stock(ctx, pid)
	if err != nil || stock != 0 {
		t.Fatalf("expected stock 0, got %d err=%v", stock, err)
	}
}

func TestStockQueries_ConcurrentDecrementsNeverOversell(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(t)
	repo := NewPostgres(pool, nil)
	pid := testdb.Product(t, pool, "sugar", 10, 7)

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.DecrementStock(ctx, pid, 1); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	if ok.Load() != 7 {
		t.Fatalf("expected 7 successful decrements, got %d", ok.Load())
	}
	stock, err := repo.Stock(ctx, pid)
	if err != nil || stock != 0 {
		t.Fatalf("expected stock 0, got %d err=%v", stock, err)
	}
}

func TestStockQueries_LockForUpdateReturnsRequested(t *testing.T) {
	ctx := context.Background()
	pool := testdb.Pool(t)
	a := testdb.Product(t, pool, "a", 10, 1)
	b := testdb.Product(t, pool, "b", 20, 2)
	testdb.Product(t, pool, "c", 30, 3)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	locked, err := NewStockQueries(tx).LockForUpdate(ctx, []string{b, a})
	if err != nil {
		t.Fatalf("LockForUpdate: %v", err)
	}
	if len(locked) != 2 || locked[a].Stock != 1 || locked[b].PriceCents != 20 {
		t.Fatalf("unexpected locked set %+v", locked)
	}
}
