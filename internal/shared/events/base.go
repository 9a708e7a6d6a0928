package events

import (
	"encoding/json"
	"reflect"
	"time"
)

// Base de todos los eventos de integración
type IntegrationEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"` // contenido específico del evento
}

func (e IntegrationEvent) PartitionKey() string {
	return e.Key
}

// EventMetadata indica a qué tipo decodificar el payload de la outbox y a
// qué topic pertenece.
type EventMetadata struct {
	Type  reflect.Type
	Topic string
}

type Registry map[string]EventMetadata
