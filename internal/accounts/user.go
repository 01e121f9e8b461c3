// Package accounts holds registered users and verifies their credentials.
package accounts

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrIDTaken            = errors.New("user id already taken")
	ErrMissingCredentials = errors.New("email and password are required")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is a registered account. PasswordHash is a bcrypt hash and never leaves the service.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Repository stores users. Implementations keep insertion order for FindByEmail scans.
type Repository interface {
	// Insert adds a user, failing with a Conflict when the id or the email is taken.
	Insert(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	// FindByEmail returns the first user, in insertion order, whose email matches exactly.
	FindByEmail(ctx context.Context, email string) (*User, error)
	Count(ctx context.Context) (int64, error)
}
