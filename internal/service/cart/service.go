// Package cart owns cart CRUD for the authenticated shopper. Reads go through a
// read-through cache; every mutation invalidates the cached copy.
package cart

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"

	"storefront/internal/cache"
	"storefront/internal/domain"

	"golang.org/x/sync/singleflight"
)

type cartRepo interface {
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID string, quantity int) error
	SetQuantity(ctx context.Context, userID, productID string, quantity int) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type stockChecker interface {
	CheckStock(ctx context.Context, productID string, quantity int) (bool, error)
}

type productGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

type Service struct {
	repo     cartRepo
	ledger   stockChecker
	products productGetter
	cache    cache.CartCache
	group    singleflight.Group
	logger   *log.Logger

	// gens counts invalidations per user so a load that raced one can undo its cache write.
	mu   sync.Mutex
	gens map[string]uint64
}

func New(repo cartRepo, ledger stockChecker, products productGetter, c cache.CartCache, logger *log.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		repo:     repo,
		ledger:   ledger,
		products: products,
		cache:    c,
		logger:   logger,
		gens:     make(map[string]uint64),
	}
}

func (s *Service) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	cached, err := s.cache.Get(ctx, userID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Printf("cart service: cache get user_id=%s error=%v", userID, err)
	}

	v, err, _ := s.group.Do(userID, func() (any, error) {
		gen := s.generation(userID)
		cart, err := s.repo.GetByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, userID, cart); err != nil {
			s.logger.Printf("cart service: cache set user_id=%s error=%v", userID, err)
		}
		if s.generation(userID) != gen {
			// The cart changed while it was loading; drop the copy just written.
			s.dropCached(ctx, userID)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// Add puts quantity more units of a product in the cart. The resulting line quantity must
// be covered by current stock.
func (s *Service) Add(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if err := validateLine(productID, quantity); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	total := quantity
	for _, item := range current.Items {
		if item.ProductID == productID {
			total += item.Quantity
		}
	}
	if err := s.ensureStock(ctx, productID, total); err != nil {
		return nil, err
	}

	if err := s.repo.AddItem(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return s.Get(ctx, userID)
}

// Update sets the line quantity for a product already in the cart.
func (s *Service) Update(ctx context.Context, userID, productID string, quantity int) (*domain.Cart, error) {
	productID = strings.TrimSpace(productID)
	if err := validateLine(productID, quantity); err != nil {
		return nil, err
	}
	if err := s.ensureStock(ctx, productID, quantity); err != nil {
		return nil, err
	}
	if err := s.repo.SetQuantity(ctx, userID, productID, quantity); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return s.Get(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) (*domain.Cart, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, domain.NewValidationError("productId", "is required")
	}
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return s.Get(ctx, userID)
}

// Clear empties the cart. Clearing an empty cart succeeds.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.repo.Clear(ctx, userID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) ensureStock(ctx context.Context, productID string, quantity int) error {
	ok, err := s.ledger.CheckStock(ctx, productID, quantity)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	stockErr := &domain.InsufficientStockError{ProductID: productID, Requested: quantity}
	if p, err := s.products.GetByID(ctx, productID); err == nil {
		stockErr.ProductName = p.Name
		stockErr.Available = p.Stock
	}
	return stockErr
}

// Invalidate drops the cached cart after a change made outside this service, such as
// checkout clearing it.
func (s *Service) Invalidate(ctx context.Context, userID string) error {
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	s.mu.Lock()
	s.gens[userID]++
	s.mu.Unlock()
	s.dropCached(ctx, userID)
}

func (s *Service) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[userID]
}

func (s *Service) dropCached(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Printf("cart service: cache delete user_id=%s error=%v", userID, err)
	}
}

func validateLine(productID string, quantity int) error {
	if productID == "" {
		return domain.NewValidationError("productId", "is required")
	}
	if quantity < 1 {
		return domain.NewValidationError("quantity", "must be at least 1")
	}
	return nil
}
