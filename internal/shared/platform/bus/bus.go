package bus

import "context"

// Keyer lo implementan los eventos que fijan su clave de partición. Los
// eventos de un post usan su id, así Kafka conserva el orden por post.
type Keyer interface {
	PartitionKey() string
}

// EventPublisher es el puerto del relayer de outbox hacia el broker (Kafka o
// el bus en memoria). Recibe el IntegrationEvent ya construido; cada adapter
// decide topic y serialización.
type EventPublisher interface {
	Publish(ctx context.Context, event interface{}) error
}
