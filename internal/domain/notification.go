package domain

import "time"

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	OrderID   *string   `json:"orderId,omitempty"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}

type NotificationCounter struct {
	UserID string `json:"userId"`
	Count  int    `json:"count"`
}
