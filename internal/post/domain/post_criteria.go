package domain

import (
	"strings"

	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	"github.com/google/uuid"
)

// Nombres de columna neutrales; cada adapter los mapea a su almacenamiento.
const (
	FieldID          = "id"
	FieldAuthorID    = "author_id"
	FieldCategoryID  = "category_id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldBody        = "body"
	FieldCreatedAt   = "created_at"
	FieldUpdatedAt   = "updated_at"
)

// ---------------- Implementaciones concretas ----------------

// Filtrado por ID exacto
type IDCriteria struct {
	ID int64
}

func (c IDCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{{Field: FieldID, Op: sharedDomain.OpEq, Value: c.ID}}
}

// Filtrado por un único autor
type AuthorCriteria struct {
	AuthorID uuid.UUID
}

func (c AuthorCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{{Field: FieldAuthorID, Op: sharedDomain.OpEq, Value: c.AuthorID.String()}}
}

// Filtrado por varios autores
type AuthorInCriteria struct {
	AuthorIDs []uuid.UUID
}

func (c AuthorInCriteria) ToConditions() []sharedDomain.Criterion {
	ids := make([]string, 0, len(c.AuthorIDs))
	for _, id := range c.AuthorIDs {
		ids = append(ids, id.String())
	}
	return []sharedDomain.Criterion{{Field: FieldAuthorID, Op: sharedDomain.OpIn, Value: ids}}
}

// Filtrado por varias categorías
type CategoryInCriteria struct {
	CategoryIDs []int64
}

func (c CategoryInCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{{Field: FieldCategoryID, Op: sharedDomain.OpIn, Value: c.CategoryIDs}}
}

// TextSearchCriteria busca el texto en título, descripción o cuerpo (ILIKE).
type TextSearchCriteria struct {
	Text string
}

func (c TextSearchCriteria) pattern() string {
	return "%" + escapeLike(strings.TrimSpace(c.Text)) + "%"
}

// ToConditions solo es correcto como AND; los traductores usan Expand.
func (c TextSearchCriteria) ToConditions() []sharedDomain.Criterion {
	return []sharedDomain.Criterion{{Field: FieldTitle, Op: sharedDomain.OpILike, Value: c.pattern()}}
}

func (c TextSearchCriteria) Expand() sharedDomain.Criteria {
	p := c.pattern()
	return sharedDomain.Or(
		sharedDomain.Criterion{Field: FieldTitle, Op: sharedDomain.OpILike, Value: p},
		sharedDomain.Criterion{Field: FieldDescription, Op: sharedDomain.OpILike, Value: p},
		sharedDomain.Criterion{Field: FieldBody, Op: sharedDomain.OpILike, Value: p},
	)
}

// LIKE trata % y _ como comodines; el texto del usuario se busca literal
// eliminándolos.
func escapeLike(s string) string {
	return strings.NewReplacer("%", "", "_", "").Replace(s)
}

// ---------------- Filtro de búsqueda ----------------

// SearchFilter agrupa los filtros opcionales de la búsqueda de posts.
type SearchFilter struct {
	AuthorIDs   []uuid.UUID `json:"authorIds,omitempty"`
	CategoryIDs []int64     `json:"categoryIds,omitempty"`
	SearchText  string      `json:"searchText,omitempty"`
}

// Criteria devuelve nil si no hay ningún filtro.
func (f SearchFilter) Criteria() sharedDomain.Criteria {
	var parts []sharedDomain.Criteria
	if len(f.AuthorIDs) > 0 {
		parts = append(parts, AuthorInCriteria{AuthorIDs: f.AuthorIDs})
	}
	if len(f.CategoryIDs) > 0 {
		parts = append(parts, CategoryInCriteria{CategoryIDs: f.CategoryIDs})
	}
	if strings.TrimSpace(f.SearchText) != "" && escapeLike(strings.TrimSpace(f.SearchText)) != "" {
		parts = append(parts, TextSearchCriteria{Text: f.SearchText})
	}
	return sharedDomain.And(parts...)
}
