package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"wexcommerce/internal/domain"
	userrepo "wexcommerce/internal/repository/user"
)

// ErrInvalidCredentials is returned when email/password do not match.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)

type tokenIssuer interface {
	Issue(u domain.User) (string, error)
}

type cartMerger interface {
	MergeOnSignIn(ctx context.Context, anonymousCartID, userID string) (*domain.Cart, error)
}

// Service handles sign-up and sign-in.
type Service struct {
	repo        userrepo.Repository
	tokens      tokenIssuer
	carts       cartMerger
	logger      *log.Logger
	passwordMin int
}

func New(repo userrepo.Repository, tokens tokenIssuer, carts cartMerger, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		repo:        repo,
		tokens:      tokens,
		carts:       carts,
		logger:      logger,
		passwordMin: 8,
	}
}

type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*domain.User, error) {
	email, err := domain.NormalizeEmail("email", in.Email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, domain.Invalid("fullName", "is required")
	}
	password := strings.TrimSpace(in.Password)
	if err := validatePassword(password, s.passwordMin); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, domain.User{
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        in.Phone,
		Address:      in.Address,
		Type:         domain.UserTypeUser,
		PasswordHash: string(hashed),
	})
}

// SignIn validates credentials and returns the user with an access token. When
// cartID names an anonymous cart it is merged into the user's cart.
func (s *Service) SignIn(ctx context.Context, email, password, cartID string) (*domain.User, string, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(strings.TrimSpace(password))) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, "", err
	}

	if cartID != "" && s.carts != nil {
		if _, err := s.carts.MergeOnSignIn(ctx, cartID, u.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Printf("user service: merge cart user_id=%s cart_id=%s error=%v", u.ID, cartID, err)
		}
	}
	return u, token, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func validatePassword(p string, min int) error {
	if len(p) < min {
		return domain.Invalid("password", fmt.Sprintf("must be at least %d characters", min))
	}
	hasUpper := false
	hasLower := false
	hasDigit := false
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return domain.Invalid("password", "must contain at least 1 uppercase letter, 1 lowercase letter, and 1 number")
	}
	return nil
}
