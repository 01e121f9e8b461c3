package handlers

import (
	"net/http"
	"time"
)

// CredentialsRequest is the request body for registering and signing in.
type CredentialsRequest struct {
	Body struct {
		Email    string `doc:"Account email, case-sensitive" example:"user@example.com"       json:"email,omitempty"`
		Password string `doc:"Account password"              example:"purple-monkey-dinosaur" json:"password,omitempty"`
	}
}

// UserBody describes a user without its credentials.
type UserBody struct {
	ID    string `doc:"User id"    example:"aJ48lW"           json:"id"`
	Email string `doc:"User email" example:"user@example.com" json:"email"`
}

// SessionResponse returns the signed-in user and the session cookie.
type SessionResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      UserBody
}

// LogoutResponse clears the session cookie.
type LogoutResponse struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

// MeResponse returns the signed-in user.
type MeResponse struct {
	Body UserBody
}

// LinkBody describes a link owned by the caller with its visit statistics.
type LinkBody struct {
	ID             string    `doc:"Short link id"                  example:"b6UTxQ"                       json:"id"`
	LongURL        string    `doc:"Destination URL"                example:"https://www.tsn.ca"           json:"longUrl"`
	ShortURL       string    `doc:"Public short URL"               example:"http://localhost:8080/u/b6UTxQ" json:"shortUrl"`
	CreatedAt      time.Time `doc:"Creation time"                                                         json:"createdAt"`
	TotalVisits    int64     `doc:"Number of redirects"            example:"3"                            json:"totalVisits"`
	UniqueVisitors int       `doc:"Number of distinct visitors"    example:"2"                            json:"uniqueVisitors"`
}

// ListLinksResponse lists the caller's links in creation order.
type ListLinksResponse struct {
	Body struct {
		Links []LinkBody `json:"links"`
	}
}

// LongURLRequest carries the destination of a link.
type LongURLRequest struct {
	Body struct {
		LongURL string `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"longUrl,omitempty"`
	}
}

// UpdateLinkRequest changes the destination of a link.
type UpdateLinkRequest struct {
	ID   string `doc:"Short link id" example:"b6UTxQ" path:"id"`
	Body struct {
		LongURL string `doc:"The new destination" example:"https://example.com/other" json:"longUrl,omitempty"`
	}
}

// CreateLinkResponse is the response for a newly created link.
type CreateLinkResponse struct {
	Location string `doc:"The short URL" header:"Location"`
	Body     LinkBody
}

// LinkIDRequest addresses a link by id.
type LinkIDRequest struct {
	ID string `doc:"Short link id" example:"b6UTxQ" path:"id"`
}

// LinkResponse returns a single link.
type LinkResponse struct {
	Body LinkBody
}

// RedirectRequest is the request for following a short link.
type RedirectRequest struct {
	ID        string `doc:"Short link id"                   example:"b6UTxQ" path:"id"`
	VisitorID string `doc:"Anonymous visitor id, if known"  cookie:"visitor_id"`
}

// RedirectResponse redirects to the link destination.
type RedirectResponse struct {
	Status    int
	Location  string        `header:"Location"`
	SetCookie []http.Cookie `header:"Set-Cookie"`
}
