package domain

import (
	"context"
	"strings"
	"time"
)

// User represents a domain user object
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	GoogleID     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a new User instance
func NewUser(username, email string) *User {
	now := time.Now()
	return &User{
		Username:  username,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate validates the user
func (u *User) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(u.Username) == "" {
		errs = append(errs, NewMissingFieldError("username"))
	}
	if strings.TrimSpace(u.Email) == "" {
		errs = append(errs, NewMissingFieldError("email"))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// UserRepository defines the interface for user data persistence.
// Lookups return (nil, nil) when no user matches.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, userID string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
}
