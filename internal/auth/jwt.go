package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"wexcommerce/internal/domain"
)

// Claims are carried by every access token.
type Claims struct {
	Email string          `json:"email"`
	Type  domain.UserType `json:"type"`
	jwt.RegisteredClaims
}

func (c Claims) UserID() string { return c.Subject }

func (c Claims) IsAdmin() bool { return c.Type == domain.UserTypeAdmin }

// Manager issues and verifies HS256 access tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *Manager) Issue(u domain.User) (string, error) {
	now := m.now()
	claims := Claims{
		Email: u.Email,
		Type:  u.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies a token and returns its claims. Every failure wraps domain.ErrUnauthorized.
func (m *Manager) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", domain.ErrUnauthorized)
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("invalid token: %w", domain.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token without subject: %w", domain.ErrUnauthorized)
	}
	return claims, nil
}

func (m *Manager) TTL() time.Duration { return m.ttl }
