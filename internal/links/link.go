// Package links models short links, their owners and per-visitor visit counts.
package links

import (
	"context"
	"errors"
	"maps"
	"time"
)

var (
	ErrNotFound     = errors.New("link not found")
	ErrIDTaken      = errors.New("link id already taken")
	ErrNotOwner     = errors.New("link belongs to another user")
	ErrNoSession    = errors.New("sign in required")
	ErrUnknownOwner = errors.New("owner does not exist")
	ErrEmptyURL     = errors.New("long url is required")
)

// Link is a shortened URL. ID, OwnerID and CreatedAt never change after creation.
type Link struct {
	ID        string
	LongURL   string
	OwnerID   string
	CreatedAt time.Time
	// Visits maps a visitor id (user id or anonymous visitor id) to its redirect count.
	Visits map[string]int64
}

// Clone returns a deep copy so callers never share the visits map with a store.
func (l *Link) Clone() *Link {
	if l == nil {
		return nil
	}

	c := *l
	c.Visits = maps.Clone(l.Visits)

	if c.Visits == nil {
		c.Visits = make(map[string]int64)
	}

	return &c
}

// Stats summarises the visits of a link.
type Stats struct {
	Total  int64
	Unique int
}

// Aggregate sums all visit counts and counts distinct visitors.
func Aggregate(link *Link) Stats {
	if link == nil {
		return Stats{}
	}

	stats := Stats{Unique: len(link.Visits)}
	for _, count := range link.Visits {
		stats.Total += count
	}

	return stats
}

// UserLink is a link enriched with its visit statistics.
type UserLink struct {
	*Link
	Stats
}

// Repository stores links keyed by id, preserving insertion order.
type Repository interface {
	// Insert adds a link, failing with a Conflict wrapping ErrIDTaken if the id exists.
	Insert(ctx context.Context, link *Link) error
	Get(ctx context.Context, id string) (*Link, error)
	UpdateLongURL(ctx context.Context, id, longURL string) error
	Delete(ctx context.Context, id string) error
	// ListByOwner returns the owner's links in insertion order.
	ListByOwner(ctx context.Context, ownerID string) ([]*Link, error)
	// RecordVisit increments the visitor's counter on the link.
	RecordVisit(ctx context.Context, id, visitorID string) error
	Count(ctx context.Context) (int64, error)
}
