package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/shortlinks/internal/accounts"
	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/handlers"
	"github.com/serroba/shortlinks/internal/links"
	"github.com/serroba/shortlinks/internal/middleware"
	"github.com/serroba/shortlinks/internal/ratelimit"
	"github.com/serroba/shortlinks/internal/session"
	"github.com/serroba/shortlinks/internal/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	testBaseURL  = "http://short.test"
	testPassword = "purple-monkey-dinosaur"
)

// recorded captures published events.
type recorded[T any] struct {
	mu     sync.Mutex
	events []*T
	err    error
}

func (r *recorded[T]) publish(_ context.Context, event *T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)

	return r.err
}

func (r *recorded[T]) all() []*T {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*T(nil), r.events...)
}

type testEnv struct {
	api      humatest.TestAPI
	accounts *accounts.Service
	links    *links.Service
	sessions *session.Manager
	created  *recorded[analytics.LinkCreatedEvent]
	visited  *recorded[analytics.LinkVisitedEvent]
}

func counter(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		n++

		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// peerAddr is the connection address of every test request.
const peerAddr = "192.0.2.1"

// newTestEnv serves clients that connect directly; forwarding headers are not believed.
func newTestEnv(t *testing.T, limits ...ratelimit.Rule) *testEnv {
	t.Helper()

	return buildTestEnv(t, middleware.TrustedProxies{}, limits)
}

// newProxiedTestEnv serves clients through a trusted reverse proxy.
func newProxiedTestEnv(t *testing.T, limits ...ratelimit.Rule) *testEnv {
	t.Helper()

	proxies, err := middleware.ParseTrustedProxies(peerAddr)
	require.NoError(t, err)

	return buildTestEnv(t, proxies, limits)
}

func buildTestEnv(t *testing.T, proxies middleware.TrustedProxies, limits []ratelimit.Rule) *testEnv {
	t.Helper()

	users := store.NewUserMemoryStore()
	linkStore := store.NewLinkMemoryStore()

	env := &testEnv{
		accounts: accounts.NewService(users, counter("user-"), accounts.WithBcryptCost(bcrypt.MinCost)),
		links:    links.NewService(linkStore, users, counter("link-")),
		sessions: session.NewManager("session", []byte("handler-test-secret"), time.Hour),
		created:  &recorded[analytics.LinkCreatedEvent]{},
		visited:  &recorded[analytics.LinkVisitedEvent]{},
	}

	router := chi.NewMux()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.RemoteAddr = peerAddr + ":40000"
			next.ServeHTTP(w, r)
		})
	})

	api := humatest.Wrap(t, humachi.New(router, huma.DefaultConfig("Test", "1.0.0")))
	api.UseMiddleware(
		middleware.RequestMeta(api, proxies),
		middleware.RateLimiter(api, ratelimit.NewLimiter(store.NewRateLimitMemoryStore()), proxies, zap.NewNop()),
		session.Middleware(env.sessions, env.accounts, zap.NewNop()),
	)

	handlers.RegisterRoutes(api,
		handlers.NewAuthHandler(env.accounts, env.sessions, zap.NewNop()),
		handlers.NewLinkHandler(env.links, testBaseURL, env.created.publish, zap.NewNop()),
		handlers.NewRedirectHandler(env.links, env.sessions, env.visited.publish, zap.NewNop()),
		limits,
	)

	env.api = api

	return env
}

// signUp registers email and returns the user and a Cookie header carrying its session.
func (e *testEnv) signUp(t *testing.T, email string) (*accounts.User, string) {
	t.Helper()

	user, err := e.accounts.Register(context.Background(), email, testPassword)
	require.NoError(t, err)

	cookie, err := e.sessions.Issue(user.ID)
	require.NoError(t, err)

	return user, "Cookie: " + cookie.Name + "=" + cookie.Value
}

func findCookie(t *testing.T, resp *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range resp.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}

	return nil
}
