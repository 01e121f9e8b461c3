package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mockSubscriber struct {
	msgChan      chan *message.Message
	subscribeErr error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{
		msgChan: make(chan *message.Message, 10),
	}
}

func (m *mockSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	return m.msgChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgChan)
	}

	return nil
}

// outcome waits for msg to be acked or nacked.
func outcome(t *testing.T, msg *message.Message) string {
	t.Helper()

	select {
	case <-msg.Acked():
		return "ack"
	case <-msg.Nacked():
		return "nack"
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ack or nack")

		return ""
	}
}

func startConsumer(t *testing.T, handler messaging.Handler[testEvent]) (*mockSubscriber, *messaging.Consumer[testEvent]) {
	t.Helper()

	sub := newMockSubscriber()
	consumer := messaging.NewConsumer(sub, "test.topic", handler, zap.NewNop())

	require.NoError(t, consumer.Start(context.Background()))
	t.Cleanup(func() { _ = consumer.Shutdown() })

	return sub, consumer
}

func eventMessage(t *testing.T, event *testEvent) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(uuid.NewString(), payload)
}

func TestConsumer_Start(t *testing.T) {
	t.Run("starts successfully", func(t *testing.T) {
		_, consumer := startConsumer(t, func(context.Context, *testEvent) error { return nil })

		assert.Equal(t, "test.topic", consumer.Topic())
	})

	t.Run("returns error when subscribe fails", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("subscribe error")}
		consumer := messaging.NewConsumer(
			sub,
			"test.topic",
			func(context.Context, *testEvent) error { return nil },
			zap.NewNop(),
		)

		err := consumer.Start(context.Background())

		require.Error(t, err)
		assert.NoError(t, consumer.Shutdown(), "shutdown after a failed start must not block")
	})
}

func TestConsumer_HandleMessage(t *testing.T) {
	t.Run("acks on successful handling", func(t *testing.T) {
		received := make(chan *testEvent, 1)
		sub, _ := startConsumer(t, func(_ context.Context, event *testEvent) error {
			received <- event

			return nil
		})

		msg := eventMessage(t, &testEvent{ID: "123", Name: "test"})
		sub.msgChan <- msg

		require.Equal(t, "ack", outcome(t, msg))

		event := <-received
		assert.Equal(t, "123", event.ID)
		assert.Equal(t, "test", event.Name)
	})

	t.Run("drops undecodable payloads", func(t *testing.T) {
		called := false
		sub, _ := startConsumer(t, func(context.Context, *testEvent) error {
			called = true

			return nil
		})

		msg := message.NewMessage(uuid.NewString(), []byte("invalid json"))
		sub.msgChan <- msg

		assert.Equal(t, "ack", outcome(t, msg))
		assert.False(t, called)
	})

	t.Run("nacks on handler error", func(t *testing.T) {
		sub, _ := startConsumer(t, func(context.Context, *testEvent) error {
			return errors.New("handler error")
		})

		msg := eventMessage(t, &testEvent{ID: "123"})
		sub.msgChan <- msg

		assert.Equal(t, "nack", outcome(t, msg))
	})

	t.Run("acks on permanent handler error", func(t *testing.T) {
		sub, _ := startConsumer(t, func(context.Context, *testEvent) error {
			return fmt.Errorf("wrapped: %w", messaging.Permanent(errors.New("gone")))
		})

		msg := eventMessage(t, &testEvent{ID: "123"})
		sub.msgChan <- msg

		assert.Equal(t, "ack", outcome(t, msg))
	})
}

func TestPermanent(t *testing.T) {
	base := errors.New("gone")

	assert.NoError(t, messaging.Permanent(nil))
	assert.True(t, messaging.IsPermanent(messaging.Permanent(base)))
	assert.ErrorIs(t, messaging.Permanent(base), base)
	assert.False(t, messaging.IsPermanent(base))
	assert.False(t, messaging.IsPermanent(nil))
}

func TestConsumer_Shutdown(t *testing.T) {
	t.Run("shuts down gracefully", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(
			sub,
			"test.topic",
			func(context.Context, *testEvent) error { return nil },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		assert.NoError(t, consumer.Shutdown())
	})

	t.Run("stops when the subscription closes", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(
			sub,
			"test.topic",
			func(context.Context, *testEvent) error { return nil },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))
		require.NoError(t, sub.Close())

		assert.NoError(t, consumer.Shutdown())
	})
}
