package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const readBackoff = time.Second

// MessageHandler lo implementa cualquier consumidor de eventos.
type MessageHandler interface {
	HandleMessage(ctx context.Context, key string, payload []byte)
}

// HandlerFunc adapta una función a MessageHandler.
type HandlerFunc func(ctx context.Context, key string, payload []byte)

func (f HandlerFunc) HandleMessage(ctx context.Context, key string, payload []byte) {
	f(ctx, key, payload)
}

// ConsumerAdapter lee de Kafka y entrega cada mensaje a un MessageHandler.
// El offset se confirma después de entregar el mensaje (at-least-once).
type ConsumerAdapter struct {
	reader  *kafka.Reader
	handler MessageHandler
	log     *zap.Logger
}

func NewConsumerAdapter(reader *kafka.Reader, handler MessageHandler, log *zap.Logger) *ConsumerAdapter {
	return &ConsumerAdapter{reader: reader, handler: handler, log: log}
}

// NewKafkaReader crea un reader de consumer group con commits explícitos.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
}

// Start lanza el bucle de consumo en una goroutine y cierra el reader al
// cancelarse ctx.
func (c *ConsumerAdapter) Start(ctx context.Context) {
	cfg := c.reader.Config()
	c.log.Info("🎧 Iniciando consumidor de Kafka",
		zap.String("topic", cfg.Topic),
		zap.String("group", cfg.GroupID),
		zap.Strings("brokers", cfg.Brokers),
	)
	go func() {
		defer c.reader.Close()
		for c.next(ctx) {
		}
		c.log.Info("Consumidor de Kafka detenido", zap.String("topic", cfg.Topic))
	}()
}

// next procesa un mensaje. Devuelve false cuando hay que parar.
func (c *ConsumerAdapter) next(ctx context.Context) bool {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		c.log.Error("Error al leer mensaje de Kafka", zap.Error(err))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(readBackoff):
			return true
		}
	}

	c.handler.HandleMessage(ctx, string(msg.Key), msg.Value)

	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		c.log.Warn("Commit de offset fallido",
			zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
	}
	return ctx.Err() == nil
}
