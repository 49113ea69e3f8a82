// Package payment defines the contract shared by the gateway adapters.
package payment

import (
	"context"
	"errors"
)

// ErrMalformedCallback is returned when a callback cannot be parsed or decrypted.
// Callers treat it as a failed payment.
var ErrMalformedCallback = errors.New("malformed payment callback")

// Billing carries the shopper fields some processors require on the request.
type Billing struct {
	Name  string
	Email string
	Phone string
}

// CreateRequest describes one payment attempt. Reference is the merchant-side id that
// comes back on the callback.
type CreateRequest struct {
	Reference   string
	AmountCents int64
	Currency    string
	Billing     Billing
}

// ClientPayload is what the browser needs to continue on the processor's side.
// Signature-style processors fill OrderHandle; hosted-page processors fill EncRequest
// and AccessCode.
type ClientPayload struct {
	Reference   string `json:"reference"`
	OrderHandle string `json:"id,omitempty"`
	AmountCents int64  `json:"amount"`
	Currency    string `json:"currency"`
	EncRequest  string `json:"encRequest,omitempty"`
	AccessCode  string `json:"accessCode,omitempty"`
}

// Confirmation is the processor-verified outcome of a callback.
type Confirmation struct {
	Verified    bool
	Reference   string
	PaymentID   string
	AmountCents int64
	Status      string
}

// Processor is implemented by each gateway protocol.
type Processor interface {
	Name() string
	CreateTransaction(ctx context.Context, req CreateRequest) (*ClientPayload, error)
	// ConfirmCallback authenticates a raw callback. A callback that parses but fails
	// verification returns Verified=false and a nil error.
	ConfirmCallback(ctx context.Context, raw map[string]string) (*Confirmation, error)
}
