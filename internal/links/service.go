package links

import (
	"context"
	"errors"
	"time"

	"github.com/serroba/shortlinks/internal/accounts"
	"github.com/serroba/shortlinks/internal/errx"
	"github.com/serroba/shortlinks/internal/idgen"
)

const maxCreateAttempts = 10

var errIDSpaceExhausted = errors.New("could not allocate a unique link id")

type ownerLookup interface {
	GetByID(ctx context.Context, id string) (*accounts.User, error)
}

// Service implements the link lifecycle and the owner-scoped views on top of a Repository.
type Service struct {
	links      Repository
	owners     ownerLookup
	generateID idgen.Generator
	now        func() time.Time
}

// NewService creates a link service.
func NewService(links Repository, owners ownerLookup, generateID idgen.Generator) *Service {
	return &Service{
		links:      links,
		owners:     owners,
		generateID: generateID,
		now:        time.Now,
	}
}

// WithClock replaces the creation clock, mostly for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now

	return s
}

// Create shortens longURL on behalf of ownerID. Generated ids that collide with an existing
// link are retried a bounded number of times.
func (s *Service) Create(ctx context.Context, ownerID, longURL string) (*Link, error) {
	const op = "links.Create"

	if ownerID == "" {
		return nil, errx.E(op, errx.Unauthenticated, ErrNoSession)
	}

	if longURL == "" {
		return nil, errx.E(op, errx.ValidationFailed, ErrEmptyURL)
	}

	if _, err := s.owners.GetByID(ctx, ownerID); err != nil {
		if errx.Is(err, errx.NotFound) {
			return nil, errx.E(op, errx.Unauthenticated, ErrUnknownOwner)
		}

		return nil, err
	}

	for range maxCreateAttempts {
		link := &Link{
			ID:        s.generateID(),
			LongURL:   longURL,
			OwnerID:   ownerID,
			CreatedAt: s.now(),
			Visits:    make(map[string]int64),
		}

		err := s.links.Insert(ctx, link)
		if err == nil {
			return link, nil
		}

		if !errors.Is(err, ErrIDTaken) {
			return nil, err
		}
	}

	return nil, errx.E(op, errx.Internal, errIDSpaceExhausted)
}

// Get returns a link with its statistics if requesterID owns it.
func (s *Service) Get(ctx context.Context, id, requesterID string) (*UserLink, error) {
	link, err := s.owned(ctx, "links.Get", id, requesterID)
	if err != nil {
		return nil, err
	}

	return &UserLink{Link: link, Stats: Aggregate(link)}, nil
}

// Update points the link at a new destination.
func (s *Service) Update(ctx context.Context, id, requesterID, newLongURL string) (*Link, error) {
	const op = "links.Update"

	link, err := s.owned(ctx, op, id, requesterID)
	if err != nil {
		return nil, err
	}

	if newLongURL == "" {
		return nil, errx.E(op, errx.ValidationFailed, ErrEmptyURL)
	}

	if err := s.links.UpdateLongURL(ctx, id, newLongURL); err != nil {
		return nil, err
	}

	link.LongURL = newLongURL

	return link, nil
}

// Delete removes the link. Deleting an id that does not exist is always NotFound.
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	const op = "links.Delete"

	if _, err := s.owned(ctx, op, id, requesterID); err != nil {
		return err
	}

	return s.links.Delete(ctx, id)
}

// Resolve returns the destination of a link. Redirects are public so no owner check applies.
func (s *Service) Resolve(ctx context.Context, id string) (string, error) {
	link, err := s.links.Get(ctx, id)
	if err != nil {
		return "", err
	}

	return link.LongURL, nil
}

// LinksForUser returns the links owned by userID, in insertion order, with their statistics.
// A user without links gets an empty slice.
func (s *Service) LinksForUser(ctx context.Context, userID string) ([]UserLink, error) {
	owned, err := s.links.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]UserLink, 0, len(owned))
	for _, link := range owned {
		if link.OwnerID != userID {
			continue
		}

		result = append(result, UserLink{Link: link, Stats: Aggregate(link)})
	}

	return result, nil
}

// RecordVisit counts one traversal of the link by visitorID.
func (s *Service) RecordVisit(ctx context.Context, id, visitorID string) error {
	return s.links.RecordVisit(ctx, id, visitorID)
}

// Count returns the number of stored links.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.links.Count(ctx)
}

func (s *Service) owned(ctx context.Context, op, id, requesterID string) (*Link, error) {
	if requesterID == "" {
		return nil, errx.E(op, errx.Unauthenticated, ErrNoSession)
	}

	link, err := s.links.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if link.OwnerID != requesterID {
		return nil, errx.E(op, errx.Forbidden, ErrNotOwner)
	}

	return link, nil
}
