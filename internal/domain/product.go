package domain

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CategoryIDs []string  `json:"categories"`
	PriceCents  int64     `json:"priceCents"`
	Quantity    int       `json:"quantity"`
	SoldOut     bool      `json:"soldOut"`
	Hidden      bool      `json:"hidden"`
	Featured    bool      `json:"featured"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"createdAt"`
}
