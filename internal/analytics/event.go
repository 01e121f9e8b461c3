// Package analytics turns link events published by the API into visit counts and audit logs.
package analytics

import "time"

const (
	TopicLinkVisited = "link.visited"
	TopicLinkCreated = "link.created"
)

// LinkVisitedEvent is published for every redirect through a short link.
type LinkVisitedEvent struct {
	LinkID    string    `json:"linkId"`
	VisitorID string    `json:"visitorId"`
	VisitedAt time.Time `json:"visitedAt"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent"`
	Referrer  string    `json:"referrer,omitempty"`
}

// LinkCreatedEvent is published when a user shortens a URL.
type LinkCreatedEvent struct {
	LinkID    string    `json:"linkId"`
	OwnerID   string    `json:"ownerId"`
	LongURL   string    `json:"longUrl"`
	CreatedAt time.Time `json:"createdAt"`
	ClientIP  string    `json:"clientIp"`
	UserAgent string    `json:"userAgent"`
}
