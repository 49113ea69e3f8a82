// Package payment records gateway round trips in the payment ledger. A transaction only
// becomes usable for order placement after its processor callback has been verified
// server-side.
package payment

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/metrics"
	gateway "storefront/internal/payment"
	paymentrepo "storefront/internal/repository/payment"

	"github.com/google/uuid"
)

type Service struct {
	processors map[string]gateway.Processor
	ledger     paymentrepo.Repository
	metrics    *metrics.Metrics
	currency   string
	logger     *log.Logger
	newRef     func() string
}

func New(ledger paymentrepo.Repository, m *metrics.Metrics, currency string, logger *log.Logger, processors ...gateway.Processor) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	byName := make(map[string]gateway.Processor, len(processors))
	for _, p := range processors {
		if p != nil {
			byName[p.Name()] = p
		}
	}
	return &Service{
		processors: byName,
		ledger:     ledger,
		metrics:    m,
		currency:   currency,
		logger:     logger,
		newRef:     newReference,
	}
}

// newReference returns a 20 character alphanumeric id, short enough for processors that
// cap merchant order ids.
func newReference() string {
	return "ord" + strings.ReplaceAll(uuid.NewString(), "-", "")[:17]
}

type CreateInput struct {
	UserID      string
	Processor   string
	Reference   string
	AmountCents int64
	Billing     gateway.Billing
}

// Confirmed is a verified ledger entry ready to be consumed by order placement.
type Confirmed struct {
	Reference   string
	PaymentID   string
	AmountCents int64
	UserID      string
}

func (s *Service) Enabled(processor string) bool {
	_, ok := s.processors[processor]
	return ok
}

// CreateTransaction starts a payment with the named processor and records it as CREATED.
func (s *Service) CreateTransaction(ctx context.Context, in CreateInput) (*gateway.ClientPayload, error) {
	p, ok := s.processors[in.Processor]
	if !ok {
		return nil, domain.NewValidationError("processor", "is not configured")
	}
	if in.AmountCents <= 0 {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	ref := strings.TrimSpace(in.Reference)
	if ref == "" {
		ref = s.newRef()
	}

	payload, err := p.CreateTransaction(ctx, gateway.CreateRequest{
		Reference:   ref,
		AmountCents: in.AmountCents,
		Currency:    s.currency,
		Billing:     in.Billing,
	})
	if err != nil {
		s.logger.Printf("payment service: create processor=%s reference=%s error=%v", in.Processor, ref, err)
		return nil, err
	}

	_, err = s.ledger.Create(ctx, domain.PaymentTransaction{
		Processor:   p.Name(),
		Reference:   payload.Reference,
		UserID:      in.UserID,
		AmountCents: in.AmountCents,
		Currency:    s.currency,
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		return nil, domain.NewValidationError("orderId", "has already been used for a payment")
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Confirm authenticates a processor callback and marks the ledger entry VERIFIED or
// FAILED. When userID is set the transaction must belong to that user. Every failure is
// reported as a PaymentVerificationError; details only reach the log.
func (s *Service) Confirm(ctx context.Context, processor, userID string, raw map[string]string) (*Confirmed, error) {
	p, ok := s.processors[processor]
	if !ok {
		return nil, domain.NewValidationError("processor", "is not configured")
	}

	conf, err := p.ConfirmCallback(ctx, raw)
	if err != nil {
		s.logger.Printf("payment service: callback processor=%s error=%v", processor, err)
		s.metrics.PaymentCallback(processor, false)
		return nil, &domain.PaymentVerificationError{Reason: "payment could not be verified"}
	}

	fail := func(reason string) (*Confirmed, error) {
		s.metrics.PaymentCallback(processor, false)
		if err := s.ledger.MarkFailed(ctx, conf.Reference); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("payment service: mark failed reference=%s error=%v", conf.Reference, err)
		}
		s.logger.Printf("payment service: rejected processor=%s reference=%s status=%s reason=%s", processor, conf.Reference, conf.Status, reason)
		return nil, &domain.PaymentVerificationError{Reason: reason}
	}

	txn, err := s.ledger.GetByReference(ctx, conf.Reference)
	if errors.Is(err, domain.ErrNotFound) {
		s.metrics.PaymentCallback(processor, false)
		s.logger.Printf("payment service: unknown reference processor=%s reference=%s", processor, conf.Reference)
		return nil, &domain.PaymentVerificationError{Reason: "unknown payment"}
	}
	if err != nil {
		return nil, err
	}
	if userID != "" && txn.UserID != userID {
		s.metrics.PaymentCallback(processor, false)
		return nil, &domain.PaymentVerificationError{Reason: "unknown payment"}
	}
	if !conf.Verified {
		return fail("payment was not successful")
	}
	if conf.AmountCents != 0 && conf.AmountCents != txn.AmountCents {
		return fail("paid amount does not match")
	}

	verified, err := s.ledger.MarkVerified(ctx, conf.Reference, conf.PaymentID)
	if errors.Is(err, domain.ErrAlreadyExists) {
		s.metrics.PaymentCallback(processor, false)
		return nil, &domain.PaymentVerificationError{Reason: "payment was already settled"}
	}
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentCallback(processor, true)
	s.logger.Printf("payment service: verified processor=%s reference=%s payment_id=%s", processor, verified.Reference, verified.PaymentID)
	return &Confirmed{
		Reference:   verified.Reference,
		PaymentID:   verified.PaymentID,
		AmountCents: verified.AmountCents,
		UserID:      verified.UserID,
	}, nil
}
