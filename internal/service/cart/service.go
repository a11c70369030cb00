package cart

import (
	"context"
	"errors"

	"wexcommerce/internal/domain"
	cartrepo "wexcommerce/internal/repository/cart"
)

type Service struct {
	repo        cartRepo
	productRepo productRepo
}

type cartRepo interface {
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

type productRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
}

func New(repo cartrepo.Repository, productRepo productRepo) *Service {
	return &Service{repo: repo, productRepo: productRepo}
}

type AddItemInput struct {
	CartID    string `json:"cartId"`
	UserID    string `json:"-"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// AddItem puts a product in the cart, creating the cart when none is given. A
// signed-in user always adds to their own cart.
func (s *Service) AddItem(ctx context.Context, in AddItemInput) (*domain.Cart, error) {
	if in.Quantity < 1 {
		return nil, domain.Invalid("quantity", "must be at least 1")
	}
	if err := domain.RequireID("productId", in.ProductID); err != nil {
		return nil, err
	}
	if _, err := s.productRepo.GetByID(ctx, in.ProductID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.Invalid("productId", "product not found")
		}
		return nil, err
	}

	cartID := in.CartID
	switch {
	case in.UserID != "":
		id, err := s.repo.EnsureForUser(ctx, in.UserID)
		if err != nil {
			return nil, err
		}
		cartID = id
	case cartID == "":
		created, err := s.repo.Create(ctx)
		if err != nil {
			return nil, err
		}
		cartID = created.ID
	default:
		if err := domain.RequireID("cartId", cartID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.AddItem(ctx, cartID, in.ProductID, in.Quantity); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cartID)
}

// UpdateItemQuantity sets an item's quantity. Removing an item goes through DeleteItem.
func (s *Service) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, domain.Invalid("quantity", "must be at least 1")
	}
	if !domain.ValidID(itemID) {
		return nil, domain.ErrNotFound
	}
	cartID, err := s.repo.UpdateItemQuantity(ctx, itemID, quantity)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cartID)
}

func (s *Service) DeleteItem(ctx context.Context, itemID string) (*domain.Cart, error) {
	if !domain.ValidID(itemID) {
		return nil, domain.ErrNotFound
	}
	cartID, err := s.repo.DeleteItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cartID)
}

func (s *Service) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	if !domain.ValidID(cartID) {
		return nil, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, cartID)
}

func (s *Service) Count(ctx context.Context, cartID string) (int, error) {
	if !domain.ValidID(cartID) {
		return 0, domain.ErrNotFound
	}
	return s.repo.Count(ctx, cartID)
}

func (s *Service) UserCartID(ctx context.Context, userID string) (string, error) {
	c, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *Service) Clear(ctx context.Context, cartID string) error {
	if !domain.ValidID(cartID) {
		return domain.ErrNotFound
	}
	return s.repo.Delete(ctx, cartID)
}

// MergeOnSignIn folds an anonymous cart into the user's cart. Merging the same
// anonymous cart again leaves quantities unchanged.
func (s *Service) MergeOnSignIn(ctx context.Context, anonymousCartID, userID string) (*domain.Cart, error) {
	if err := domain.RequireID("cartId", anonymousCartID); err != nil {
		return nil, err
	}
	cartID, err := s.repo.Merge(ctx, anonymousCartID, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, cartID)
}
