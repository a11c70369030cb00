package domain

import "time"

type UserType string

const (
	UserTypeAdmin UserType = "admin"
	UserTypeUser  UserType = "user"
)

// User is a registered buyer, a merchant, or a temporary guest created at checkout.
// Temporary users carry ExpireAt until their order is paid.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"fullName"`
	Phone        string     `json:"phone,omitempty"`
	Address      string     `json:"address,omitempty"`
	Type         UserType   `json:"type"`
	PasswordHash string     `json:"-"`
	ExpireAt     *time.Time `json:"expireAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (u User) IsAdmin() bool { return u.Type == UserTypeAdmin }
