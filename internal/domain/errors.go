package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnauthorized indicates a missing or invalid JWT.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports bad input shape or values.
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

// Invalid is a shorthand for building a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// InvalidCartError names the cart line that no longer matches live product state.
type InvalidCartError struct {
	ProductID string
	Reason    string
}

func (e *InvalidCartError) Error() string {
	return fmt.Sprintf("invalid cart: product %s %s", e.ProductID, e.Reason)
}

// InvalidTransitionError is returned when an order status change is not allowed.
type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition %s -> %s", e.From, e.To)
}

// PaymentError wraps a gateway rejection, timeout or transport failure.
type PaymentError struct {
	Provider PaymentMethod
	Op       string
	Err      error
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *PaymentError) Unwrap() error { return e.Err }
