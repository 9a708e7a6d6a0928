package events

import (
	"time"

	"github.com/google/uuid"
)

// Contratos de integración, NO entidades del dominio.
type PostCreated struct {
	ID         int64     `json:"id"`
	AuthorID   uuid.UUID `json:"authorId"`
	CategoryID int64     `json:"categoryId"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PostUpdated struct {
	ID         int64     `json:"id"`
	AuthorID   uuid.UUID `json:"authorId"`
	CategoryID int64     `json:"categoryId"`
	Title      string    `json:"title"`
	Tags       []string  `json:"tags"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type PostDeleted struct {
	ID         int64     `json:"id"`
	AuthorID   uuid.UUID `json:"authorId"`
	CategoryID int64     `json:"categoryId"`
}
