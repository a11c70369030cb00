package user

import (
	"context"
	"time"

	"wexcommerce/internal/domain"
)

// Repository persists and fetches users.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
