package paymenttype

import (
	"context"

	"wexcommerce/internal/domain"
)

type Repository interface {
	List(ctx context.Context) ([]domain.PaymentType, error)
	GetByID(ctx context.Context, id string) (*domain.PaymentType, error)
	Update(ctx context.Context, p domain.PaymentType) error
}
