package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrCartEmpty is returned when checkout is attempted on a cart without items.
	ErrCartEmpty = errors.New("cart is empty")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// InsufficientStockError names the first product whose stock cannot cover the request.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("%s is out of stock", name)
}

// NegativeStockError means a decrement would drive stock below zero. Settlement locks
// product rows before checking, so seeing this indicates a concurrency-control bug.
type NegativeStockError struct {
	ProductID string
	Requested int
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("decrement of %d would make stock negative for product %s", e.Requested, e.ProductID)
}

// PaymentVerificationError is returned when a payment cannot be trusted.
type PaymentVerificationError struct {
	Reason string
}

func (e *PaymentVerificationError) Error() string {
	if e.Reason == "" {
		return "payment verification failed"
	}
	return "payment verification failed: " + e.Reason
}

// PersistenceError wraps storage failures. Nothing from the failed operation is committed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// InvalidTransitionError is returned for status updates that skip or reverse a step.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}
