package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sharedEvents "github.com/davicafu/postlab/internal/shared/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu   sync.Mutex
	keys []string
}

func (h *recordingHandler) HandleMessage(_ context.Context, key string, _ []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys = append(h.keys, key)
}

func (h *recordingHandler) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.keys...)
}

func TestInMemoryEventBus_PublishToSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus("post")
	a := bus.Subscribe(1)
	b := bus.Subscribe(1)

	evt := sharedEvents.IntegrationEvent{ID: "1", Type: "post.created", Key: "42", Data: json.RawMessage(`{}`)}
	require.NoError(t, bus.Publish(context.Background(), evt))

	for _, ch := range []<-chan Message{a, b} {
		msg := <-ch
		assert.Equal(t, "42", msg.Key)

		var got sharedEvents.IntegrationEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, "post.created", got.Type)
	}
}

func TestInMemoryEventBus_FullBufferDoesNotBlock(t *testing.T) {
	bus := NewInMemoryEventBus("post")
	ch := bus.Subscribe(1)

	require.NoError(t, bus.Publish(context.Background(), map[string]int{"n": 1}))
	require.NoError(t, bus.Publish(context.Background(), map[string]int{"n": 2}))

	assert.Len(t, ch, 1)
}

func TestBackgroundConsumerChan(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewInMemoryEventBus("post")
	handler := &recordingHandler{}
	BackgroundConsumerChan(ctx, bus.Subscribe(10), handler)

	require.NoError(t, bus.Publish(ctx, sharedEvents.IntegrationEvent{Key: "7"}))

	assert.Eventually(t, func() bool { return len(handler.snapshot()) == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"7"}, handler.snapshot())
}

func TestBackgroundConsumerChan_HandlerFunc(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var n atomic.Int32
	bus := NewInMemoryEventBus("post")
	BackgroundConsumerChan(ctx, bus.Subscribe(10), HandlerFunc(func(context.Context, string, []byte) {
		n.Add(1)
	}))

	require.NoError(t, bus.Publish(ctx, sharedEvents.IntegrationEvent{Key: "1"}))
	require.NoError(t, bus.Publish(ctx, sharedEvents.IntegrationEvent{Key: "2"}))

	assert.Eventually(t, func() bool { return n.Load() == 2 }, time.Second, 10*time.Millisecond)
}
