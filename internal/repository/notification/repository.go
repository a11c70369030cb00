package notification

import (
	"context"

	"wexcommerce/internal/domain"
)

type Repository interface {
	List(ctx context.Context, userID string, page, size int) ([]domain.Notification, int, error)
	Counter(ctx context.Context, userID string) (int, error)
	SetRead(ctx context.Context, userID string, ids []string, read bool) (int64, error)
	Delete(ctx context.Context, userID string, ids []string) (int64, error)
	ReconcileCounters(ctx context.Context) (int64, error)
}
