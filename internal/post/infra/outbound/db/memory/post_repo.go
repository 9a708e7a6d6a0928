package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/davicafu/postlab/internal/post/domain"
	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	sharedMemory "github.com/davicafu/postlab/internal/shared/infra/platform/db/memory"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
	"github.com/google/uuid"
)

// PostRepoMemory guarda posts y outbox en memoria. Sirve para tests y para
// arrancar sin base de datos (STORE=memory).
type PostRepoMemory struct {
	mu     sync.RWMutex
	nextID int64
	posts  map[int64]domain.Post
	outbox []sharedDomain.OutboxEvent
}

func NewPostRepoMemory() *PostRepoMemory {
	return &PostRepoMemory{posts: make(map[int64]domain.Post)}
}

var (
	_ domain.PostRepository         = (*PostRepoMemory)(nil)
	_ sharedDomain.OutboxRepository = (*PostRepoMemory)(nil)
)

// column expone los campos neutrales del post al evaluador de criterios.
func column(p *domain.Post, field string) (interface{}, bool) {
	switch field {
	case domain.FieldID:
		return p.ID, true
	case domain.FieldAuthorID:
		return p.AuthorID.String(), true
	case domain.FieldCategoryID:
		return p.CategoryID, true
	case domain.FieldTitle:
		return p.Title, true
	case domain.FieldDescription:
		return p.Description, true
	case domain.FieldBody:
		return p.Body, true
	case domain.FieldCreatedAt:
		return p.CreatedAt, true
	case domain.FieldUpdatedAt:
		return p.UpdatedAt, true
	}
	return nil, false
}

func clone(p domain.Post) *domain.Post {
	p.Tags = append([]string(nil), p.Tags...)
	return &p
}

func (r *PostRepoMemory) Create(_ context.Context, p *domain.Post, newEvent domain.EventFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == 0 {
		r.nextID++
		p.ID = r.nextID
	} else if _, exists := r.posts[p.ID]; exists {
		return domain.ErrPostAlreadyExists
	} else if p.ID > r.nextID {
		r.nextID = p.ID
	}
	r.posts[p.ID] = *clone(*p)
	r.outbox = append(r.outbox, newEvent(p))
	return nil
}

func (r *PostRepoMemory) GetByID(_ context.Context, id int64) (*domain.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, domain.ErrPostNotFound
	}
	return clone(p), nil
}

func (r *PostRepoMemory) Update(_ context.Context, p *domain.Post, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[p.ID]; !ok {
		return domain.ErrPostNotFound
	}
	r.posts[p.ID] = *clone(*p)
	r.outbox = append(r.outbox, evt)
	return nil
}

func (r *PostRepoMemory) DeleteByID(_ context.Context, id int64, evt sharedDomain.OutboxEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return domain.ErrPostNotFound
	}
	delete(r.posts, id)
	r.outbox = append(r.outbox, evt)
	return nil
}

func (r *PostRepoMemory) Search(_ context.Context, q pagination.QuerySpec) ([]*domain.Post, error) {
	r.mu.RLock()
	all := make([]*domain.Post, 0, len(r.posts))
	for _, p := range r.posts {
		all = append(all, clone(p))
	}
	r.mu.RUnlock()

	// el mapa no tiene orden; partimos de un orden estable por id
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return sharedMemory.Query(all, q, column)
}

// ---------------- Outbox ----------------

func (r *PostRepoMemory) FetchPendingOutbox(_ context.Context, limit int) ([]sharedDomain.OutboxEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []sharedDomain.OutboxEvent
	for _, evt := range r.outbox {
		if evt.Processed {
			continue
		}
		out = append(out, evt)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *PostRepoMemory) MarkOutboxProcessed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.outbox {
		if r.outbox[i].ID == id {
			r.outbox[i].Processed = true
			return nil
		}
	}
	return sharedMemory.ErrNotFound
}

// Outbox devuelve una copia de todos los eventos registrados.
func (r *PostRepoMemory) Outbox() []sharedDomain.OutboxEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]sharedDomain.OutboxEvent(nil), r.outbox...)
}
