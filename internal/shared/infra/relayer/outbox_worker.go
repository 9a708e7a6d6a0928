package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	sharedEvents "github.com/davicafu/postlab/internal/shared/events"
	sharedBus "github.com/davicafu/postlab/internal/shared/platform/bus"
	"go.uber.org/zap"
)

// Worker publica los eventos pendientes de la outbox como IntegrationEvent.
type Worker struct {
	repo          sharedDomain.OutboxRepository
	publisher     sharedBus.EventPublisher
	eventRegistry sharedEvents.Registry
	interval      time.Duration
	batchSize     int
	log           *zap.Logger
}

func NewOutboxWorker(
	repo sharedDomain.OutboxRepository,
	publisher sharedBus.EventPublisher,
	registry sharedEvents.Registry,
	interval time.Duration,
	batchSize int,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repo:          repo,
		publisher:     publisher,
		eventRegistry: registry,
		interval:      interval,
		batchSize:     batchSize,
		log:           log,
	}
}

// Start procesa lo pendiente y luego hace polling cada interval. Si un lote
// sale lleno se pide el siguiente sin esperar al tick. Bloquea hasta que ctx
// se cancela.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("🚀 Outbox worker iniciado", zap.Duration("interval", w.interval), zap.Int("batch", w.batchSize))
	w.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("🛑 Outbox worker detenido.")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		if n := w.ProcessBatch(ctx); n < w.batchSize {
			return
		}
	}
}

// ProcessBatch publica un lote y devuelve cuántos eventos quedaron marcados.
// Cuando un evento falla, los siguientes del mismo agregado esperan al próximo
// lote para no publicarse desordenados.
func (w *Worker) ProcessBatch(ctx context.Context) int {
	events, err := w.repo.FetchPendingOutbox(ctx, w.batchSize)
	if err != nil {
		w.log.Warn("⚠️ Error al obtener eventos pendientes", zap.Error(err))
		return 0
	}
	if len(events) > 0 {
		w.log.Debug("📬 Eventos pendientes", zap.Int("count", len(events)))
	}

	published := 0
	blocked := make(map[string]struct{})
	for _, evt := range events {
		key := evt.AggregateType + "/" + evt.AggregateID
		if _, ok := blocked[key]; ok {
			continue
		}
		if !w.publishAndMark(ctx, evt) {
			blocked[key] = struct{}{}
			continue
		}
		published++
	}
	return published
}

func (w *Worker) publishAndMark(ctx context.Context, evt sharedDomain.OutboxEvent) bool {
	integration, err := w.toIntegrationEvent(evt)
	if err != nil {
		w.log.Error("No se pudo preparar el evento", zap.String("event_id", evt.ID.String()), zap.Error(err))
		return false
	}

	if err := w.publisher.Publish(ctx, integration); err != nil {
		w.log.Warn("⚠️ No se pudo publicar evento",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return false // se reintenta en el siguiente tick
	}

	if err := w.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
		w.log.Warn("⚠️ No se pudo marcar evento como procesado",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return false
	}
	w.log.Debug("✅ Evento publicado y marcado", zap.String("event_id", evt.ID.String()))
	return true
}

// toIntegrationEvent valida el payload contra el tipo registrado y lo
// envuelve con la clave de partición del agregado.
func (w *Worker) toIntegrationEvent(evt sharedDomain.OutboxEvent) (sharedEvents.IntegrationEvent, error) {
	metadata, ok := w.eventRegistry[evt.EventType]
	if !ok {
		return sharedEvents.IntegrationEvent{}, fmt.Errorf("unknown event type %q", evt.EventType)
	}

	typed := reflect.New(metadata.Type).Interface()
	payloadBytes, err := json.Marshal(evt.Payload)
	if err != nil {
		return sharedEvents.IntegrationEvent{}, err
	}
	if err := json.Unmarshal(payloadBytes, typed); err != nil {
		return sharedEvents.IntegrationEvent{}, fmt.Errorf("decode %s payload: %w", evt.EventType, err)
	}
	data, err := json.Marshal(typed)
	if err != nil {
		return sharedEvents.IntegrationEvent{}, err
	}

	return sharedEvents.IntegrationEvent{
		ID:        evt.ID.String(),
		Type:      evt.EventType,
		Key:       evt.AggregateID,
		Timestamp: evt.CreatedAt,
		Data:      data,
	}, nil
}
