package cart

import (
	"context"

	"wexcommerce/internal/domain"
)

type Repository interface {
	Create(ctx context.Context) (*domain.Cart, error)
	EnsureForUser(ctx context.Context, userID string) (string, error)
	GetByID(ctx context.Context, id string) (*domain.Cart, error)
	GetByUser(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, cartID, productID string, quantity int) error
	UpdateItemQuantity(ctx context.Context, itemID string, quantity int) (string, error)
	DeleteItem(ctx context.Context, itemID string) (string, error)
	Count(ctx context.Context, cartID string) (int, error)
	Delete(ctx context.Context, cartID string) error
	Merge(ctx context.Context, anonymousCartID, userID string) (string, error)
}
