package domain

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "ONLINE"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch PaymentMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentCOD:
		return PaymentCOD, true
	case PaymentOnline:
		return PaymentOnline, true
	}
	return "", false
}

type OrderStatus string

const (
	StatusPreparing  OrderStatus = "PREPARING"
	StatusDispatched OrderStatus = "DISPATCHED"
	StatusDelivered  OrderStatus = "DELIVERED"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPreparing:
		return StatusPreparing, true
	case StatusDispatched:
		return StatusDispatched, true
	case StatusDelivered:
		return StatusDelivered, true
	}
	return "", false
}

// next is the only status each state may advance to.
var next = map[OrderStatus]OrderStatus{
	StatusPreparing:  StatusDispatched,
	StatusDispatched: StatusDelivered,
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	n, ok := next[s]
	return ok && n == to
}

func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered
}

// DeliveryWindow is added to the placement time to get the estimated delivery date.
const DeliveryWindow = 7 * 24 * time.Hour

// Address is a snapshot copied onto the order at placement.
type Address struct {
	FullName   string `json:"fullName"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country,omitempty"`
}

func (a *Address) IsZero() bool {
	return a == nil || (strings.TrimSpace(a.FullName) == "" &&
		strings.TrimSpace(a.Line1) == "" &&
		strings.TrimSpace(a.City) == "" &&
		strings.TrimSpace(a.PostalCode) == "")
}

type OrderItem struct {
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

func (i OrderItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

type StatusStep struct {
	Status bool       `json:"status"`
	Date   *time.Time `json:"date,omitempty"`
}

type StatusTimeline struct {
	Preparing  StatusStep `json:"preparing"`
	Dispatched StatusStep `json:"dispatched"`
	Delivered  StatusStep `json:"delivered"`
}

// Order is immutable after placement except for its status fields.
type Order struct {
	ID                    string         `json:"id"`
	UserID                string         `json:"userId"`
	Items                 []OrderItem    `json:"items"`
	Address               Address        `json:"address"`
	TotalCents            int64          `json:"totalAmountCents"`
	Currency              string         `json:"currency"`
	PaymentMethod         PaymentMethod  `json:"paymentMethod"`
	PaymentID             string         `json:"paymentId,omitempty"`
	CurrentStatus         OrderStatus    `json:"currentStatus"`
	Timeline              StatusTimeline `json:"statusTimeline"`
	EstimatedDeliveryDate time.Time      `json:"estimatedDeliveryDate"`
	ExpectedDeliveryDate  *time.Time     `json:"expectedDeliveryDate,omitempty"`
	IdempotencyKey        string         `json:"-"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

// NewOrder builds a PREPARING order from priced items. The total is fixed here and
// never recomputed.
func NewOrder(id, userID string, items []OrderItem, addr Address, method PaymentMethod, paymentID, currency string, now time.Time) *Order {
	var total int64
	for _, item := range items {
		total += item.LineTotalCents()
	}
	placed := now.UTC()
	return &Order{
		ID:            id,
		UserID:        userID,
		Items:         items,
		Address:       addr,
		TotalCents:    total,
		Currency:      currency,
		PaymentMethod: method,
		PaymentID:     paymentID,
		CurrentStatus: StatusPreparing,
		Timeline: StatusTimeline{
			Preparing: StatusStep{Status: true, Date: &placed},
		},
		EstimatedDeliveryDate: placed.Add(DeliveryWindow),
		CreatedAt:             placed,
		UpdatedAt:             placed,
	}
}

// Advance moves the order one step along PREPARING -> DISPATCHED -> DELIVERED.
// Repeating the current status is rejected like any other invalid move.
// expected is only honoured on dispatch.
func (o *Order) Advance(to OrderStatus, at time.Time, expected *time.Time) error {
	if !o.CurrentStatus.CanTransitionTo(to) {
		return &InvalidTransitionError{From: o.CurrentStatus, To: to}
	}
	ts := at.UTC()
	switch to {
	case StatusDispatched:
		o.Timeline.Dispatched = StatusStep{Status: true, Date: &ts}
		if expected != nil {
			e := expected.UTC()
			o.ExpectedDeliveryDate = &e
		}
	case StatusDelivered:
		o.Timeline.Delivered = StatusStep{Status: true, Date: &ts}
	}
	o.CurrentStatus = to
	o.UpdatedAt = ts
	return nil
}

func (o *Order) OwnedBy(userID string) bool {
	return o.UserID == userID
}
