package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	postDomain "github.com/davicafu/postlab/internal/post/domain"
	sharedEvents "github.com/davicafu/postlab/internal/shared/events"
	sharedUtils "github.com/davicafu/postlab/internal/shared/infra/utils"
)

const flushTimeout = 2 * time.Second

// PostActivityConsumer acumula los eventos de post y los vuelca por lotes
// al log analítico.
type PostActivityConsumer struct {
	repo      postDomain.PostAnalyticsRepository
	batchSize int
	log       *zap.Logger

	mu      sync.Mutex
	pending []postDomain.PostActivity
}

func NewPostActivityConsumer(repo postDomain.PostAnalyticsRepository, batchSize int, log *zap.Logger) *PostActivityConsumer {
	if batchSize < 1 {
		batchSize = 1
	}
	return &PostActivityConsumer{repo: repo, batchSize: batchSize, log: log}
}

// HandleMessage es el punto de entrada para un nuevo mensaje/evento.
func (c *PostActivityConsumer) HandleMessage(ctx context.Context, key string, payload []byte) {
	var base sharedEvents.IntegrationEvent
	if err := json.Unmarshal(payload, &base); err != nil {
		c.log.Warn("Failed to unmarshal integration event for post", zap.String("key", key), zap.Error(err))
		return
	}

	switch base.Type {
	case postDomain.PostCreated:
		sharedUtils.UnmarshalAndHandle[sharedEvents.PostCreated](c.log, base.Type, base.Data, func(evt sharedEvents.PostCreated) {
			c.add(ctx, postDomain.PostActivity{
				PostID: evt.ID, AuthorID: evt.AuthorID, CategoryID: evt.CategoryID,
				EventType: base.Type, Title: evt.Title, EventTime: base.Timestamp,
			})
		})
	case postDomain.PostUpdated:
		sharedUtils.UnmarshalAndHandle[sharedEvents.PostUpdated](c.log, base.Type, base.Data, func(evt sharedEvents.PostUpdated) {
			c.add(ctx, postDomain.PostActivity{
				PostID: evt.ID, AuthorID: evt.AuthorID, CategoryID: evt.CategoryID,
				EventType: base.Type, Title: evt.Title, EventTime: base.Timestamp,
			})
		})
	case postDomain.PostDeleted:
		sharedUtils.UnmarshalAndHandle[sharedEvents.PostDeleted](c.log, base.Type, base.Data, func(evt sharedEvents.PostDeleted) {
			c.add(ctx, postDomain.PostActivity{
				PostID: evt.ID, AuthorID: evt.AuthorID, CategoryID: evt.CategoryID,
				EventType: base.Type, EventTime: base.Timestamp,
			})
		})
	default:
		c.log.Warn("Unknown post event type", zap.String("type", base.Type), zap.String("key", key))
	}
}

func (c *PostActivityConsumer) add(ctx context.Context, a postDomain.PostActivity) {
	c.mu.Lock()
	c.pending = append(c.pending, a)
	full := len(c.pending) >= c.batchSize
	c.mu.Unlock()

	if full {
		c.Flush(ctx)
	}
}

// Flush escribe lo pendiente. Si falla, el lote vuelve a la cola.
func (c *PostActivityConsumer) Flush(ctx context.Context) {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	ctxFlush, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	if err := c.repo.LogBatch(ctxFlush, batch); err != nil {
		c.log.Warn("Failed to log post activity", zap.Int("batch", len(batch)), zap.Error(err))
		c.mu.Lock()
		c.pending = append(batch, c.pending...)
		c.mu.Unlock()
		return
	}
	c.log.Debug("Post activity logged", zap.Int("batch", len(batch)))
}

// Run vuelca lo pendiente cada interval hasta que ctx se cancela.
func (c *PostActivityConsumer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// último volcado con un contexto propio
			c.Flush(context.Background())
			c.log.Info("PostActivityConsumer stopped")
			return
		case <-ticker.C:
			c.Flush(ctx)
		}
	}
}

func (c *PostActivityConsumer) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
