package deliverytype

import (
	"context"

	"wexcommerce/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.DeliveryType, error)
	GetByID(ctx context.Context, id string) (*domain.DeliveryType, error)
	Update(ctx context.Context, d domain.DeliveryType) error
}
