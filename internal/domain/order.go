package domain

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderInProgress OrderStatus = "inProgress"
	OrderShipped    OrderStatus = "shipped"
	OrderCancelled  OrderStatus = "cancelled"
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderPaid, OrderCancelled},
	OrderPaid:       {OrderConfirmed, OrderCancelled},
	OrderConfirmed:  {OrderInProgress, OrderCancelled},
	OrderInProgress: {OrderShipped, OrderCancelled},
}

// ParseOrderStatus accepts the stored spelling of a status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderPending, OrderPaid, OrderConfirmed, OrderInProgress, OrderShipped, OrderCancelled:
		return st, nil
	}
	return "", Invalid("status", fmt.Sprintf("unknown order status %q", s))
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Notifies reports whether reaching the status creates a user notification.
func (s OrderStatus) Notifies() bool {
	switch s {
	case OrderPaid, OrderConfirmed, OrderInProgress, OrderShipped:
		return true
	}
	return false
}

// StockDecremented reports whether an order in this status has already taken its
// items out of stock.
func (s OrderStatus) StockDecremented() bool {
	switch s {
	case OrderPaid, OrderConfirmed, OrderInProgress, OrderShipped:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderShipped || s == OrderCancelled
}

type Order struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	DeliveryTypeID  string        `json:"deliveryType"`
	PaymentTypeID   string        `json:"paymentType"`
	PaymentMethod   PaymentMethod `json:"paymentMethod,omitempty"`
	TotalCents      int64         `json:"totalCents"`
	Status          OrderStatus   `json:"status"`
	Items           []OrderItem   `json:"orderItems"`
	SessionID       *string       `json:"sessionId,omitempty"`
	PaymentIntentID *string       `json:"paymentIntentId,omitempty"`
	CustomerID      *string       `json:"customerId,omitempty"`
	PayPalOrderID   *string       `json:"paypalOrderId,omitempty"`
	CartID          *string       `json:"-"`
	ExpireAt        *time.Time    `json:"expireAt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	User            *User         `json:"user,omitempty"`
}

// OrderItem snapshots the product name and price at checkout.
type OrderItem struct {
	ID          string     `json:"id"`
	OrderID     string     `json:"orderId"`
	ProductID   string     `json:"productId"`
	ProductName string     `json:"productName"`
	PriceCents  int64      `json:"priceCents"`
	Quantity    int        `json:"quantity"`
	ExpireAt    *time.Time `json:"expireAt,omitempty"`
}

// ItemsTotal is Σ price × quantity over the snapshotted items.
func ItemsTotal(items []OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.PriceCents * int64(it.Quantity)
	}
	return total
}

// OrderFilter narrows order listings. Zero values match everything.
type OrderFilter struct {
	UserID        string        `json:"-"`
	PaymentTypes  []string      `json:"paymentTypes"`
	DeliveryTypes []string      `json:"deliveryTypes"`
	Statuses      []OrderStatus `json:"statuses"`
	From          *time.Time    `json:"from"`
	To            *time.Time    `json:"to"`
	Keyword       string        `json:"keyword"`
}

type OrderPage struct {
	Orders       []Order `json:"resultData"`
	TotalRecords int     `json:"totalRecords"`
}
