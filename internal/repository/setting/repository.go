package setting

import (
	"context"

	"wexcommerce/internal/domain"
)

type Repository interface {
	Get(ctx context.Context) (*domain.Setting, error)
	Update(ctx context.Context, s domain.Setting) error
}
