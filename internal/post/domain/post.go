package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	sharedEvents "github.com/davicafu/postlab/internal/shared/events"
	sharedBus "github.com/davicafu/postlab/internal/shared/platform/bus"
	"github.com/google/uuid"
)

const MaxTitleLength = 255

// Post es una publicación de un autor dentro de una categoría.
type Post struct {
	ID          int64     `json:"id"`
	AuthorID    uuid.UUID `json:"authorId"`
	CategoryID  int64     `json:"categoryId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Body        string    `json:"body"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PostInput son los datos de creación.
type PostInput struct {
	Title       string
	Description string
	Body        string
	Tags        []string
	CategoryID  int64
}

// PostPatch es una actualización parcial; nil deja el campo intacto.
type PostPatch struct {
	Title       *string
	Description *string
	Body        *string
	Tags        *[]string
	CategoryID  *int64
}

// Now devuelve la hora truncada a milisegundos. Los cursores guardan
// milisegundos, así que una precisión mayor rompería el desempate por igualdad.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func NewPost(authorID uuid.UUID, in PostInput) (*Post, error) {
	now := Now()
	p := &Post{
		AuthorID:    authorID,
		CategoryID:  in.CategoryID,
		Title:       in.Title,
		Description: in.Description,
		Body:        in.Body,
		Tags:        normalizeTags(in.Tags),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply aplica el patch y refresca UpdatedAt.
func (p *Post) Apply(patch PostPatch) error {
	next := *p
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.Body != nil {
		next.Body = *patch.Body
	}
	if patch.Tags != nil {
		next.Tags = normalizeTags(*patch.Tags)
	}
	if patch.CategoryID != nil {
		next.CategoryID = *patch.CategoryID
	}
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = Now()
	if !next.UpdatedAt.After(p.UpdatedAt) {
		next.UpdatedAt = p.UpdatedAt.Add(time.Millisecond)
	}
	*p = next
	return nil
}

func (p *Post) Validate() error {
	switch {
	case p.AuthorID == uuid.Nil:
		return fmt.Errorf("%w: authorId is required", ErrInvalidPost)
	case strings.TrimSpace(p.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidPost)
	case utf8.RuneCountInString(p.Title) > MaxTitleLength:
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidPost, MaxTitleLength)
	case p.Description == "":
		return fmt.Errorf("%w: description is required", ErrInvalidPost)
	case p.Body == "":
		return fmt.Errorf("%w: body is required", ErrInvalidPost)
	case p.CategoryID <= 0:
		return fmt.Errorf("%w: categoryId must be positive", ErrInvalidPost)
	}
	return nil
}

func (p *Post) PartitionKey() string {
	return strconv.FormatInt(p.ID, 10)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ---------- Payloads de integración ----------

func (p *Post) CreatedEvent() sharedEvents.PostCreated {
	return sharedEvents.PostCreated{
		ID: p.ID, AuthorID: p.AuthorID, CategoryID: p.CategoryID,
		Title: p.Title, Tags: p.Tags, CreatedAt: p.CreatedAt,
	}
}

func (p *Post) UpdatedEvent() sharedEvents.PostUpdated {
	return sharedEvents.PostUpdated{
		ID: p.ID, AuthorID: p.AuthorID, CategoryID: p.CategoryID,
		Title: p.Title, Tags: p.Tags, UpdatedAt: p.UpdatedAt,
	}
}

func (p *Post) DeletedEvent() sharedEvents.PostDeleted {
	return sharedEvents.PostDeleted{ID: p.ID, AuthorID: p.AuthorID, CategoryID: p.CategoryID}
}

// Verificación estática para asegurar que Post implementa la interfaz
var _ sharedBus.Keyer = (*Post)(nil)
