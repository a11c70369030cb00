package order

import (
	"context"
	"time"

	"wexcommerce/internal/domain"
)

// StockEffect says what a status change does to product stock.
type StockEffect int

const (
	StockNone StockEffect = iota
	StockDecrement
	StockRestore
)

// RefKind selects the gateway correlation id used to look an order up.
type RefKind int

const (
	RefSession RefKind = iota
	RefPaymentIntent
	RefPayPalOrder
)

// CreateInput describes an order to insert together with its side effects, all
// applied in one transaction.
type CreateInput struct {
	Order domain.Order
	// Guest is inserted first and becomes the order's user when set.
	Guest *domain.User
	// StrictStock decrements stock for every item and fails with
	// *domain.InvalidCartError when a product runs short.
	StrictStock  bool
	Notification string
	ClearCart    bool
}

type PaymentRefs struct {
	SessionID       *string
	PaymentIntentID *string
	CustomerID      *string
	PayPalOrderID   *string
}

type TransitionInput struct {
	OrderID      string
	From         domain.OrderStatus
	To           domain.OrderStatus
	Stock        StockEffect
	Notification string
	ClearExpiry  bool
	ClearCart    bool
}

type Repository interface {
	Create(ctx context.Context, in CreateInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByPaymentRef(ctx context.Context, kind RefKind, ref string) (*domain.Order, error)
	SetPaymentRefs(ctx context.Context, id string, refs PaymentRefs) error
	List(ctx context.Context, f domain.OrderFilter, page, size int) (*domain.OrderPage, error)
	Transition(ctx context.Context, in TransitionInput) (*domain.Order, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
