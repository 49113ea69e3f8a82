// Package events defines order event payloads and the broker publishers that carry them.
package events

import (
	"context"
	"time"

	"storefront/internal/domain"
)

const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
)

// Message is one event ready for a broker.
type Message struct {
	EventID string
	Type    string
	Key     string
	Payload []byte
	Time    time.Time
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

type OrderPlaced struct {
	OrderID       string             `json:"orderId"`
	UserID        string             `json:"userId"`
	TotalCents    int64              `json:"totalAmountCents"`
	Currency      string             `json:"currency"`
	PaymentMethod string             `json:"paymentMethod"`
	PaymentID     string             `json:"paymentId,omitempty"`
	Items         []domain.OrderItem `json:"items"`
	PlacedAt      time.Time          `json:"placedAt"`
}

func NewOrderPlaced(o *domain.Order) OrderPlaced {
	return OrderPlaced{
		OrderID:       o.ID,
		UserID:        o.UserID,
		TotalCents:    o.TotalCents,
		Currency:      o.Currency,
		PaymentMethod: string(o.PaymentMethod),
		PaymentID:     o.PaymentID,
		Items:         o.Items,
		PlacedAt:      o.CreatedAt,
	}
}

type OrderStatusChanged struct {
	OrderID              string     `json:"orderId"`
	UserID               string     `json:"userId"`
	From                 string     `json:"from"`
	To                   string     `json:"to"`
	ExpectedDeliveryDate *time.Time `json:"expectedDeliveryDate,omitempty"`
	ChangedAt            time.Time  `json:"changedAt"`
}

func NewOrderStatusChanged(o *domain.Order, from domain.OrderStatus) OrderStatusChanged {
	return OrderStatusChanged{
		OrderID:              o.ID,
		UserID:               o.UserID,
		From:                 string(from),
		To:                   string(o.CurrentStatus),
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		ChangedAt:            o.UpdatedAt,
	}
}

// Discard drops every message. It is used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Message) error { return nil }
func (Discard) Close() error { return nil }
