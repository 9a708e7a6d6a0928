package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrPostNotFound      = errors.New("post not found")
	ErrPostAlreadyExists = errors.New("post already exists")
	ErrInvalidPost       = errors.New("invalid post")
)

// ---------- Interfaces (Ports) ----------

// EventFactory construye el evento de outbox cuando el post ya tiene ID.
type EventFactory func(p *Post) sharedDomain.OutboxEvent

// PostRepository define las operaciones persistentes para Post. Cada
// escritura guarda su evento de outbox en la misma transacción.
type PostRepository interface {
	// Asigna p.ID si viene a cero. Debe devolver ErrPostAlreadyExists si p.ID ya existe.
	Create(ctx context.Context, p *Post, newEvent EventFactory) error

	// Debe devolver ErrPostNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*Post, error)

	// Debe devolver ErrPostNotFound si el post no existe.
	Update(ctx context.Context, p *Post, evt sharedDomain.OutboxEvent) error

	// Debe devolver ErrPostNotFound si el post no existe.
	DeleteByID(ctx context.Context, id int64, evt sharedDomain.OutboxEvent) error

	// Search ejecuta una consulta keyset ya planificada: filtro, orden y límite.
	Search(ctx context.Context, q pagination.QuerySpec) ([]*Post, error)
}

// DailyPostActivity agrega la actividad de un día.
type DailyPostActivity struct {
	Day          time.Time
	CreatedCount int
	UpdatedCount int
	DeletedCount int
}

// PostActivity es una fila del log analítico.
type PostActivity struct {
	PostID     int64
	AuthorID   uuid.UUID
	CategoryID int64
	EventType  string
	Title      string
	EventTime  time.Time
}

type PostAnalyticsRepository interface {
	LogBatch(ctx context.Context, activity []PostActivity) error
	GetDailyActivity(ctx context.Context, start, end time.Time) ([]DailyPostActivity, error)
}

// ---------- Helpers comunes (cache keys, etc.) ----------

// CacheKeyByID forma una key consistente para cache usando ID.
func CacheKeyByID(id int64) string {
	return fmt.Sprintf("post:id:%d", id)
}
