package analytics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/links"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errStoreDown = errors.New("store down")

type failingVisits struct{}

func (failingVisits) RecordVisit(context.Context, string, string) error {
	return errStoreDown
}

func seededLinks(t *testing.T) *store.LinkMemoryStore {
	t.Helper()

	s := store.NewLinkMemoryStore()
	require.NoError(t, s.Insert(context.Background(), &links.Link{
		ID:        "b6UTxQ",
		LongURL:   "https://www.tsn.ca",
		OwnerID:   "aJ48lW",
		CreatedAt: time.Now(),
	}))

	return s
}

func TestRecorder_HandleVisit(t *testing.T) {
	ctx := context.Background()

	t.Run("increments the visitor counter", func(t *testing.T) {
		linkStore := seededLinks(t)
		recorder := analytics.NewRecorder(linkStore, zap.NewNop())

		for _, visitor := range []string{"v1", "v1", "v2"} {
			err := recorder.HandleVisit(ctx, &analytics.LinkVisitedEvent{LinkID: "b6UTxQ", VisitorID: visitor})
			require.NoError(t, err)
		}

		link, err := linkStore.Get(ctx, "b6UTxQ")
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"v1": 2, "v2": 1}, link.Visits)
		assert.Equal(t, links.Stats{Total: 3, Unique: 2}, links.Aggregate(link))
	})

	t.Run("drops visits to deleted links", func(t *testing.T) {
		recorder := analytics.NewRecorder(store.NewLinkMemoryStore(), zap.NewNop())

		err := recorder.HandleVisit(ctx, &analytics.LinkVisitedEvent{LinkID: "gone", VisitorID: "v1"})

		require.Error(t, err)
		assert.True(t, messaging.IsPermanent(err))
		assert.ErrorIs(t, err, links.ErrNotFound)
	})

	t.Run("drops incomplete events", func(t *testing.T) {
		recorder := analytics.NewRecorder(seededLinks(t), zap.NewNop())

		for _, event := range []*analytics.LinkVisitedEvent{
			{VisitorID: "v1"},
			{LinkID: "b6UTxQ"},
		} {
			err := recorder.HandleVisit(ctx, event)

			assert.ErrorIs(t, err, analytics.ErrIncompleteEvent)
			assert.True(t, messaging.IsPermanent(err))
		}
	})

	t.Run("store failures are retried", func(t *testing.T) {
		recorder := analytics.NewRecorder(failingVisits{}, zap.NewNop())

		err := recorder.HandleVisit(ctx, &analytics.LinkVisitedEvent{LinkID: "b6UTxQ", VisitorID: "v1"})

		require.ErrorIs(t, err, errStoreDown)
		assert.False(t, messaging.IsPermanent(err))
	})
}

func TestAddConsumers(t *testing.T) {
	ctx := context.Background()
	linkStore := seededLinks(t)
	pubsub := messaging.NewInProcessPubSub(messaging.NewZapLoggerAdapter(zap.NewNop()))

	group := messaging.NewConsumerGroup(pubsub, zap.NewNop())
	analytics.AddConsumers(group, pubsub,
		analytics.NewRecorder(linkStore, zap.NewNop()),
		analytics.NewAuditLog(zap.NewNop()),
		zap.NewNop(),
	)
	require.Equal(t, 2, group.Len())
	require.NoError(t, group.Start(ctx))

	defer func() { _ = group.Shutdown() }()

	publishVisit := messaging.NewPublishFunc[analytics.LinkVisitedEvent](pubsub, analytics.TopicLinkVisited)
	require.NoError(t, publishVisit(ctx, &analytics.LinkVisitedEvent{LinkID: "b6UTxQ", VisitorID: "v1"}))

	assert.Eventually(t, func() bool {
		link, err := linkStore.Get(ctx, "b6UTxQ")

		return err == nil && link.Visits["v1"] == 1
	}, time.Second, 10*time.Millisecond)
}
