package product

import (
	"context"

	"wexcommerce/internal/domain"
)

// ListFilter narrows the catalog. Hidden products are excluded unless IncludeHidden is set.
type ListFilter struct {
	IncludeHidden bool
	CategoryID    string
	Keyword       string
	FeaturedOnly  bool
}

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
	Update(ctx context.Context, product domain.Product) (*domain.Product, error)
}
