package domain

import "time"

// Cart is owned by a user, or by whoever holds its id when UserID is nil.
type Cart struct {
	ID        string     `json:"id"`
	UserID    *string    `json:"userId,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Items     []CartItem `json:"cartItems"`
}

// CartItem references a product; Product is filled from live state on read.
type CartItem struct {
	ID        string   `json:"id"`
	CartID    string   `json:"cartId"`
	ProductID string   `json:"productId"`
	Quantity  int      `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

// TotalCents sums live prices; it is only indicative until checkout snapshots it.
func (c Cart) TotalCents() int64 {
	var total int64
	for _, it := range c.Items {
		if it.Product != nil {
			total += it.Product.PriceCents * int64(it.Quantity)
		}
	}
	return total
}
