package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/ratelimit"
	"github.com/serroba/shortlinks/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

type failingStore struct{}

func (failingStore) Record(context.Context, string, time.Duration) (int64, error) {
	return 0, errStoreDown
}

func TestLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows requests under limit", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore())
		rules := ratelimit.PerMinute(5)

		for range 5 {
			exceeded, err := limiter.Check(ctx, "client1", rules)

			require.NoError(t, err)
			assert.Nil(t, exceeded)
		}
	})

	t.Run("reports the exceeded rule", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore())
		rules := ratelimit.PerMinute(3)

		for range 3 {
			exceeded, err := limiter.Check(ctx, "client1", rules)
			require.NoError(t, err)
			require.Nil(t, exceeded)
		}

		exceeded, err := limiter.Check(ctx, "client1", rules)

		require.NoError(t, err)
		require.NotNil(t, exceeded)
		assert.Equal(t, int64(4), exceeded.Count)
		assert.Equal(t, int64(3), exceeded.Rule.Max)
		assert.Contains(t, exceeded.Error(), "4/3 requests in 1m0s")
	})

	t.Run("tracks clients independently", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore())
		rules := ratelimit.PerMinute(1)

		exceeded, _ := limiter.Check(ctx, "client1", rules)
		assert.Nil(t, exceeded)

		exceeded, _ = limiter.Check(ctx, "client1", rules)
		assert.NotNil(t, exceeded, "client1 should be rate limited")

		exceeded, err := limiter.Check(ctx, "client2", rules)

		require.NoError(t, err)
		assert.Nil(t, exceeded, "client2 should still be allowed")
	})

	t.Run("allows requests after window expires", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(store.NewRateLimitMemoryStore())
		rules := []ratelimit.Rule{{Max: 1, Window: 50 * time.Millisecond}}

		exceeded, _ := limiter.Check(ctx, "client1", rules)
		assert.Nil(t, exceeded)

		exceeded, _ = limiter.Check(ctx, "client1", rules)
		assert.NotNil(t, exceeded)

		time.Sleep(60 * time.Millisecond)

		exceeded, err := limiter.Check(ctx, "client1", rules)

		require.NoError(t, err)
		assert.Nil(t, exceeded, "should be allowed after window expires")
	})

	t.Run("no rules always allows", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(failingStore{})

		exceeded, err := limiter.Check(ctx, "client1", nil)

		require.NoError(t, err)
		assert.Nil(t, exceeded)
	})

	t.Run("propagates store errors", func(t *testing.T) {
		limiter := ratelimit.NewLimiter(failingStore{})

		_, err := limiter.Check(ctx, "client1", ratelimit.PerMinute(1))

		require.ErrorIs(t, err, errStoreDown)
	})
}

func TestPerMinute(t *testing.T) {
	assert.Nil(t, ratelimit.PerMinute(0))
	assert.Nil(t, ratelimit.PerMinute(-1))
	assert.Equal(t, []ratelimit.Rule{{Max: 10, Window: time.Minute}}, ratelimit.PerMinute(10))
}

func TestRulesFor(t *testing.T) {
	t.Run("nil operation", func(t *testing.T) {
		assert.Nil(t, ratelimit.RulesFor(nil))
	})

	t.Run("operation without metadata", func(t *testing.T) {
		assert.Nil(t, ratelimit.RulesFor(&huma.Operation{Method: http.MethodGet}))
	})

	t.Run("operation with rules", func(t *testing.T) {
		op := &huma.Operation{
			Method:   http.MethodPost,
			Metadata: map[string]any{ratelimit.MetadataKey: ratelimit.PerMinute(2)},
		}

		assert.Equal(t, ratelimit.PerMinute(2), ratelimit.RulesFor(op))
	})

	t.Run("ignores metadata of another type", func(t *testing.T) {
		op := &huma.Operation{Metadata: map[string]any{ratelimit.MetadataKey: "nope"}}

		assert.Nil(t, ratelimit.RulesFor(op))
	})
}
