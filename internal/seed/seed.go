// Package seed loads the demo accounts and links.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/serroba/shortlinks/internal/accounts"
	"github.com/serroba/shortlinks/internal/errx"
	"github.com/serroba/shortlinks/internal/links"
	"go.uber.org/zap"
)

type demoUser struct {
	ID, Email, Password string
}

type demoLink struct {
	ID, LongURL, OwnerID string
}

var (
	demoUsers = []demoUser{
		{ID: "aJ48lW", Email: "user@example.com", Password: "purple-monkey-dinosaur"},
		{ID: "user2RandomID", Email: "user2@example.com", Password: "dishwasher-funk"},
	}

	demoLinks = []demoLink{
		{ID: "b6UTxQ", LongURL: "https://www.tsn.ca", OwnerID: "aJ48lW"},
		{ID: "i3BoGr", LongURL: "https://www.google.ca", OwnerID: "aJ48lW"},
	}
)

type passwordHasher interface {
	HashPassword(password string) (string, error)
}

// Load inserts the demo data. Records that already exist are left untouched, so Load can
// run on every start against a persistent store.
func Load(
	ctx context.Context,
	users accounts.Repository,
	linkRepo links.Repository,
	hasher passwordHasher,
	logger *zap.Logger,
) error {
	now := time.Now()

	var created int

	for _, u := range demoUsers {
		hash, err := hasher.HashPassword(u.Password)
		if err != nil {
			return fmt.Errorf("hash password of %s: %w", u.Email, err)
		}

		err = users.Insert(ctx, &accounts.User{ID: u.ID, Email: u.Email, PasswordHash: hash, CreatedAt: now})
		if err != nil && !errx.Is(err, errx.Conflict) {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}

		if err == nil {
			created++
		}
	}

	for _, l := range demoLinks {
		err := linkRepo.Insert(ctx, &links.Link{
			ID:        l.ID,
			LongURL:   l.LongURL,
			OwnerID:   l.OwnerID,
			CreatedAt: now,
			Visits:    make(map[string]int64),
		})
		if err != nil && !errx.Is(err, errx.Conflict) {
			return fmt.Errorf("seed link %s: %w", l.ID, err)
		}

		if err == nil {
			created++
		}
	}

	logger.Info("demo data loaded", zap.Int("created", created))

	return nil
}
