package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/postlab/internal/shared/events"
	sharedBus "github.com/davicafu/postlab/internal/shared/platform/bus"
)

const eventTypeHeader = "event-type"

// KafkaPublisher escribe cada evento en el topic configurado en el writer.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaPublisher(writer *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

// NewKafkaWriter crea un writer que reparte por hash de la clave, así los
// eventos de un mismo post mantienen su orden.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// Publish serializa el evento en JSON. La clave sale de PartitionKey y, si es
// un IntegrationEvent, su tipo viaja también como header.
func (p *KafkaPublisher) Publish(ctx context.Context, event interface{}) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("Error publishing to Kafka", zap.String("topic", p.writer.Topic), zap.Error(err))
		return fmt.Errorf("publish to %s: %w", p.writer.Topic, err)
	}
	p.log.Debug("Event published", zap.String("topic", p.writer.Topic), zap.ByteString("key", msg.Key))
	return nil
}

func toMessage(event interface{}) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{Value: data}
	if keyer, ok := event.(sharedBus.Keyer); ok {
		msg.Key = []byte(keyer.PartitionKey())
	}
	if ie, ok := event.(sharedEvents.IntegrationEvent); ok {
		msg.Headers = []kafka.Header{{Key: eventTypeHeader, Value: []byte(ie.Type)}}
	}
	return msg, nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ sharedBus.EventPublisher = (*KafkaPublisher)(nil)
