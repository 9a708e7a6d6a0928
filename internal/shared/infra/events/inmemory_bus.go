package events

import (
	"context"
	"encoding/json"
	"sync"

	sharedBus "github.com/davicafu/postlab/internal/shared/platform/bus"
)

// Message es lo que recibe un suscriptor del bus en memoria.
type Message struct {
	Key     string
	Payload []byte
}

// InMemoryEventBus implementa un bus de eventos para UN solo topic.
type InMemoryEventBus struct {
	subscribers []chan Message
	mu          sync.RWMutex
	topic       string
}

var _ sharedBus.EventPublisher = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus(topic string) *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make([]chan Message, 0),
		topic:       topic,
	}
}

func (b *InMemoryEventBus) Topic() string {
	return b.topic
}

// Publish serializa el evento y lo entrega a los suscriptores sin bloquear:
// si el buffer de un suscriptor está lleno, el mensaje se descarta para él.
func (b *InMemoryEventBus) Publish(ctx context.Context, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := Message{Payload: payload}
	if keyer, ok := event.(sharedBus.Keyer); ok {
		msg.Key = keyer.PartitionKey()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		select {
		case sub <- msg:
		default:
		}
	}
	return nil
}

func (b *InMemoryEventBus) Subscribe(bufferSize int) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Message, bufferSize)
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// BackgroundConsumerChan entrega los mensajes del canal al handler hasta que
// ctx se cancela.
func BackgroundConsumerChan(ctx context.Context, ch <-chan Message, handler MessageHandler) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-ch:
				handler.HandleMessage(ctx, msg.Key, msg.Payload)
			}
		}
	}()
}
