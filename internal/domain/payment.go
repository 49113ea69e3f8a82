package domain

import "time"

type PaymentStatus string

const (
	PaymentCreated  PaymentStatus = "CREATED"
	PaymentVerified PaymentStatus = "VERIFIED"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentConsumed PaymentStatus = "CONSUMED"
)

// PaymentTransaction correlates one gateway round trip with the shopper who started it
// and, once consumed, the order it paid for.
type PaymentTransaction struct {
	ID          string        `json:"id"`
	Processor   string        `json:"processor"`
	Reference   string        `json:"reference"`
	UserID      string        `json:"userId"`
	AmountCents int64         `json:"amountCents"`
	Currency    string        `json:"currency"`
	Status      PaymentStatus `json:"status"`
	PaymentID   string        `json:"paymentId,omitempty"`
	OrderID     string        `json:"orderId,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
