package domain

import "time"

type OrderEventType string

const (
	EventOrderConfirmed     OrderEventType = "order.confirmed"
	EventOrderPaid          OrderEventType = "order.paid"
	EventOrderStatusChanged OrderEventType = "order.status_changed"
)

// OrderEvent is published after an order is created or changes status.
type OrderEvent struct {
	Type          OrderEventType `json:"type"`
	OrderID       string         `json:"orderId"`
	UserID        string         `json:"userId"`
	Email         string         `json:"email"`
	FullName      string         `json:"fullName"`
	Status        OrderStatus    `json:"status"`
	PaymentMethod PaymentMethod  `json:"paymentMethod"`
	TotalCents    int64          `json:"totalCents"`
	Currency      string         `json:"currency"`
	Bank          *BankDetails   `json:"bank,omitempty"`
	OccurredAt    time.Time      `json:"occurredAt"`
}
