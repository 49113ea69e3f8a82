// Package order is the settlement engine: it turns a cart into an immutable order and
// drives the order through its fulfilment states.
package order

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"storefront/internal/domain"
	"storefront/internal/events"
	"storefront/internal/metrics"
	orderrepo "storefront/internal/repository/order"
	"storefront/internal/service/inventory"

	"github.com/google/uuid"
)

type cartInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

type Service struct {
	repo     orderrepo.Repository
	carts    cartInvalidator
	metrics  *metrics.Metrics
	currency string
	logger   *log.Logger

	now   func() time.Time
	newID func() string
}

// New wires the engine. carts and m may be nil.
func New(repo orderrepo.Repository, carts cartInvalidator, m *metrics.Metrics, currency string, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		repo:     repo,
		carts:    carts,
		metrics:  m,
		currency: currency,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

type PlaceOrderInput struct {
	UserID         string
	Address        *domain.Address
	PaymentMethod  string
	PaymentID      string
	IdempotencyKey string
}

type UpdateStatusInput struct {
	Status               string
	ExpectedDeliveryDate *time.Time
}

// PlaceOrder settles the caller's cart. Stock check, price snapshot, order insert, stock
// decrement, payment consumption and cart clear all run in one transaction with the
// involved product rows locked.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.Order, error) {
	method, err := validatePlacement(in)
	if err != nil {
		s.metrics.SettlementFailure("validation")
		return nil, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		existing, err := s.repo.GetByIdempotencyKey(ctx, in.UserID, key)
		if err == nil {
			s.logger.Printf("order service: replay user_id=%s key=%s order_id=%s", in.UserID, key, existing.ID)
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.PersistenceError{Op: "lookup idempotency key", Err: err}
		}
	}

	orderID := s.newID()
	now := s.now()
	var placed *domain.Order

	err = s.repo.InTx(ctx, func(tx orderrepo.Tx) error {
		cart, err := tx.LoadCart(ctx, in.UserID)
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrCartEmpty
		}

		ids := make([]string, 0, len(cart.Items))
		for _, line := range cart.Items {
			ids = append(ids, line.ProductID)
		}
		products, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}

		ledger := inventory.New(tx, s.logger)
		items := make([]domain.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			p, ok := products[line.ProductID]
			if !ok {
				name := line.ProductID
				if line.Product != nil {
					name = line.Product.Name
				}
				return &domain.InsufficientStockError{ProductID: line.ProductID, ProductName: name, Requested: line.Quantity}
			}
			sufficient, err := ledger.CheckStock(ctx, p.ID, line.Quantity)
			if err != nil {
				return err
			}
			if !sufficient {
				return &domain.InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Requested:   line.Quantity,
					Available:   p.Stock,
				}
			}
			items = append(items, domain.OrderItem{
				ProductID:      p.ID,
				Name:           p.Name,
				Quantity:       line.Quantity,
				UnitPriceCents: p.EffectivePriceCents(),
			})
		}

		o := domain.NewOrder(orderID, in.UserID, items, *in.Address, method, strings.TrimSpace(in.PaymentID), s.currency, now)
		o.IdempotencyKey = key

		if method == domain.PaymentOnline {
			txn, err := tx.ConsumePayment(ctx, o.PaymentID, in.UserID, o.ID)
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.PaymentVerificationError{Reason: "payment is not verified"}
			}
			if err != nil {
				return err
			}
			if txn.AmountCents != o.TotalCents {
				s.logger.Printf("order service: amount mismatch payment_id=%s paid=%d total=%d", o.PaymentID, txn.AmountCents, o.TotalCents)
				return &domain.PaymentVerificationError{Reason: "paid amount does not match order total"}
			}
		}

		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		for _, item := range o.Items {
			if err := ledger.Decrement(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := tx.ClearCart(ctx, in.UserID); err != nil {
			return err
		}
		if err := tx.Enqueue(ctx, events.TypeOrderPlaced, o.ID, events.NewOrderPlaced(o)); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		if key != "" && errors.Is(err, domain.ErrAlreadyExists) {
			if existing, lookupErr := s.repo.GetByIdempotencyKey(ctx, in.UserID, key); lookupErr == nil {
				return existing, nil
			}
		}
		reason, out := classify(err)
		s.metrics.SettlementFailure(reason)
		if reason == "persistence" {
			s.logger.Printf("order service: place user_id=%s error=%v", in.UserID, err)
		}
		return nil, out
	}

	s.invalidateCart(ctx, in.UserID)
	s.metrics.OrderPlaced(string(placed.PaymentMethod))
	s.logger.Printf("order service: placed order_id=%s user_id=%s total=%d items=%d", placed.ID, placed.UserID, placed.TotalCents, len(placed.Items))
	return placed, nil
}

func validatePlacement(in PlaceOrderInput) (domain.PaymentMethod, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return "", domain.NewValidationError("userId", "is required")
	}
	if in.Address.IsZero() {
		return "", domain.NewValidationError("address", "is required")
	}
	if strings.TrimSpace(in.Address.Line1) == "" || strings.TrimSpace(in.Address.City) == "" {
		return "", domain.NewValidationError("address", "line1 and city are required")
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return "", domain.NewValidationError("paymentMethod", "is required")
	}
	method, ok := domain.ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return "", domain.NewValidationError("paymentMethod", "must be COD or ONLINE")
	}
	if method == domain.PaymentOnline && strings.TrimSpace(in.PaymentID) == "" {
		return "", domain.NewValidationError("paymentId", "is required for online payment")
	}
	return method, nil
}

// classify keeps user-correctable domain errors and wraps everything else.
func classify(err error) (string, error) {
	var (
		validation   *domain.ValidationError
		insufficient *domain.InsufficientStockError
		payment      *domain.PaymentVerificationError
	)
	switch {
	case errors.Is(err, domain.ErrCartEmpty):
		return "cart_empty", err
	case errors.As(err, &insufficient):
		return "insufficient_stock", err
	case errors.As(err, &payment):
		return "payment", err
	case errors.As(err, &validation):
		return "validation", err
	}
	var persistence *domain.PersistenceError
	if errors.As(err, &persistence) {
		return "persistence", err
	}
	return "persistence", &domain.PersistenceError{Op: "place order", Err: err}
}

func (s *Service) invalidateCart(ctx context.Context, userID string) {
	if s.carts == nil {
		return
	}
	if err := s.carts.Invalidate(ctx, userID); err != nil {
		s.logger.Printf("order service: invalidate cart user_id=%s error=%v", userID, err)
	}
}

// Get returns the order to its owner or an admin. Other callers get ErrNotFound.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewValidationError("id", "is required")
	}
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapRead("get order", err)
	}
	if !actor.IsAdmin && !o.OwnedBy(actor.UserID) {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *Service) ListMine(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	out, err := s.repo.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, wrapRead("list orders", err)
	}
	return out, nil
}

func (s *Service) ListAll(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	out, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, wrapRead("list all orders", err)
	}
	return out, nil
}

// UpdateStatus advances an order by one step. Only admins may call it.
func (s *Service) UpdateStatus(ctx context.Context, actor domain.Actor, id string, in UpdateStatusInput) (*domain.Order, error) {
	if !actor.IsAdmin {
		return nil, domain.ErrForbidden
	}
	to, ok := domain.ParseOrderStatus(in.Status)
	if !ok {
		return nil, domain.NewValidationError("status", "must be PREPARING, DISPATCHED or DELIVERED")
	}

	now := s.now()
	updated, err := s.repo.UpdateStatus(ctx, id, func(tx orderrepo.Tx, o *domain.Order) error {
		from := o.CurrentStatus
		if err := o.Advance(to, now, in.ExpectedDeliveryDate); err != nil {
			return err
		}
		return tx.Enqueue(ctx, events.TypeOrderStatusChanged, o.ID, events.NewOrderStatusChanged(o, from))
	})
	if err != nil {
		var transition *domain.InvalidTransitionError
		if errors.As(err, &transition) {
			return nil, err
		}
		return nil, wrapRead("update order status", err)
	}
	s.logger.Printf("order service: status order_id=%s status=%s by=%s", updated.ID, updated.CurrentStatus, actor.UserID)
	return updated, nil
}

func wrapRead(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return &domain.PersistenceError{Op: op, Err: err}
}
