package accounts

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/serroba/shortlinks/internal/errx"
	"github.com/serroba/shortlinks/internal/idgen"
	"golang.org/x/crypto/bcrypt"
)

const maxIDAttempts = 10

var errIDSpaceExhausted = errors.New("could not allocate a unique user id")

// Service registers users and checks their credentials.
type Service struct {
	users      Repository
	generateID idgen.Generator
	cost       int
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost sets the bcrypt work factor used for new password hashes.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates an accounts service on top of a user repository.
func NewService(users Repository, generateID idgen.Generator, opts ...Option) *Service {
	s := &Service{
		users:      users,
		generateID: generateID,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// HashPassword hashes a plaintext password with the configured cost.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", errx.E("accounts.HashPassword", errx.ValidationFailed, err)
	}

	return string(hash), nil
}

// Register creates a user with a fresh id and a hashed password.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	const op = "accounts.Register"

	if email == "" || password == "" {
		return nil, errx.E(op, errx.ValidationFailed, ErrMissingCredentials)
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, errx.E(op, errx.Conflict, ErrEmailTaken)
	}

	if !errx.Is(err, errx.NotFound) {
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	for range maxIDAttempts {
		user := &User{
			ID:           s.generateID(),
			Email:        email,
			PasswordHash: hash,
			CreatedAt:    s.now(),
		}

		err = s.users.Insert(ctx, user)
		if err == nil {
			return user, nil
		}

		if !errors.Is(err, ErrIDTaken) {
			return nil, err
		}
	}

	return nil, errx.E(op, errx.Internal, errIDSpaceExhausted)
}

// FindByEmail looks a user up by exact, case-sensitive email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.users.FindByEmail(ctx, email)
}

// GetByID resolves a session user id.
func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// Authenticate returns the user when the email exists and the password matches its hash.
// Unknown emails and wrong passwords produce the same NotFound error, and both run one
// bcrypt comparison.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	const op = "accounts.Authenticate"

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errx.Is(err, errx.NotFound) {
			return nil, err
		}

		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))

		return nil, errx.E(op, errx.NotFound, ErrInvalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errx.E(op, errx.NotFound, ErrInvalidCredentials)
	}

	return user, nil
}

// Count returns the number of registered users.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})

	return s.dummyHash
}
