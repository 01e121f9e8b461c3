// Package session issues and verifies the signed cookie that carries the signed-in user id.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// VisitorCookieName holds the anonymous visitor id used to count unique visits.
const VisitorCookieName = "visitor_id"

const visitorCookieMaxAge = 365 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid session token")

// Claims are the JWT claims stored in the session cookie.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Manager signs and verifies session cookies.
type Manager struct {
	cookieName string
	secret     []byte
	ttl        time.Duration
	secure     bool
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithSecureCookies marks issued cookies as HTTPS-only.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

// WithClock replaces time.Now when stamping tokens.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a session manager signing with secret, issuing cookies valid for ttl.
func NewManager(cookieName string, secret []byte, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		cookieName: cookieName,
		secret:     secret,
		ttl:        ttl,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// Issue returns a session cookie for userID.
func (m *Manager) Issue(userID string) (http.Cookie, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		UserID: userID,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return http.Cookie{}, fmt.Errorf("sign session: %w", err)
	}

	return http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Clear returns a cookie that removes the session from the client.
func (m *Manager) Clear() http.Cookie {
	return http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Parse verifies a session token and returns the user id it carries.
func (m *Manager) Parse(tokenString string) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}

	return claims.UserID, nil
}

// VisitorCookie returns the long-lived cookie identifying an anonymous visitor.
func (m *Manager) VisitorCookie(visitorID string) http.Cookie {
	return http.Cookie{
		Name:     VisitorCookieName,
		Value:    visitorID,
		Path:     "/",
		MaxAge:   int(visitorCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

type userIDKey struct{}

// WithUserID stores the signed-in user id in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the signed-in user id, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey{}).(string); ok {
		return v
	}

	return ""
}
