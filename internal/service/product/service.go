package product

import (
	"context"
	"strings"

	"wexcommerce/internal/domain"
	productrepo "wexcommerce/internal/repository/product"
)

type Service struct {
	repo productrepo.Repository
}

func New(repo productrepo.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, f productrepo.ListFilter) ([]domain.Product, error) {
	if f.CategoryID != "" && !domain.ValidID(f.CategoryID) {
		return nil, domain.Invalid("category", "is not a valid id")
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	if !domain.ValidID(id) {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = ""
	if err := validate(p); err != nil {
		return nil, err
	}
	return s.repo.Upsert(ctx, p)
}

func (s *Service) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if !domain.ValidID(p.ID) {
		return nil, domain.ErrNotFound
	}
	if err := validate(p); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, p)
}

func validate(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return domain.Invalid("name", "is required")
	}
	if p.PriceCents < 0 {
		return domain.Invalid("priceCents", "must not be negative")
	}
	if p.Quantity < 0 {
		return domain.Invalid("quantity", "must not be negative")
	}
	for _, id := range p.CategoryIDs {
		if !domain.ValidID(id) {
			return domain.Invalid("categories", "contains an invalid id")
		}
	}
	return nil
}
