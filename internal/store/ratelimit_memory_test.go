package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortlinks/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func TestRateLimitMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("records and counts requests", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		for want := int64(1); want <= 3; want++ {
			count, err := s.Record(ctx, "key1", time.Minute)

			require.NoError(t, err)
			assert.Equal(t, want, count)
		}
	})

	t.Run("tracks keys independently", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		_, _ = s.Record(ctx, "key1", time.Minute)
		_, _ = s.Record(ctx, "key1", time.Minute)

		count, err := s.Record(ctx, "key2", time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(1), count, "key2 should have its own counter")
	})

	t.Run("prunes expired entries", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStore().WithClock(clock.Now)

		_, _ = s.Record(ctx, "key1", time.Minute)
		clock.Advance(30 * time.Second)
		_, _ = s.Record(ctx, "key1", time.Minute)
		clock.Advance(45 * time.Second)

		count, err := s.Record(ctx, "key1", time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(2), count, "only the first request fell out of the window")
	})

	t.Run("prune drops idle keys", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStore().WithClock(clock.Now)

		_, _ = s.Record(ctx, "idle", time.Minute)
		clock.Advance(2 * time.Minute)
		_, _ = s.Record(ctx, "busy", time.Minute)

		assert.Equal(t, 1, s.Prune())
		assert.Equal(t, 1, s.Keys())
	})

	t.Run("prune keeps keys inside their widest window", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStore().WithClock(clock.Now)

		_, _ = s.Record(ctx, "key1", time.Hour)
		_, _ = s.Record(ctx, "key1", time.Minute)
		clock.Advance(10 * time.Minute)

		assert.Zero(t, s.Prune())
		assert.Equal(t, 1, s.Keys())
	})

	t.Run("pruning loop forgets many distinct clients", func(t *testing.T) {
		clock := newFakeClock()
		s := store.NewRateLimitMemoryStore().WithClock(clock.Now)
		s.StartPruning(5 * time.Millisecond)

		for i := range 10000 {
			_, _ = s.Record(ctx, fmt.Sprintf("client-%d", i), time.Minute)
		}

		clock.Advance(time.Hour)
		_, _ = s.Record(ctx, "fresh", time.Minute)

		assert.Eventually(t, func() bool { return s.Keys() == 1 }, time.Second, 5*time.Millisecond)
		require.NoError(t, s.Shutdown())
		require.NoError(t, s.Shutdown())
	})

	t.Run("shutdown without pruning returns", func(t *testing.T) {
		assert.NoError(t, store.NewRateLimitMemoryStore().Shutdown())
	})

	t.Run("handles concurrent access", func(t *testing.T) {
		s := store.NewRateLimitMemoryStore()

		var wg sync.WaitGroup

		for range 50 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, _ = s.Record(ctx, "shared", time.Minute)
			}()
		}

		wg.Wait()

		count, err := s.Record(ctx, "shared", time.Minute)

		require.NoError(t, err)
		assert.Equal(t, int64(51), count)
	})
}
