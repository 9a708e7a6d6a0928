package domain

import (
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
)

// Campos por los que se puede ordenar una búsqueda de posts.
const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortTitle     = "title"
	SortID        = "id"
)

var PostSortSchema = pagination.Schema[*Post]{
	ID: pagination.Field[*Post]{
		Name: SortID, Column: FieldID, Kind: pagination.KindNumber,
		Value: func(p *Post) pagination.Value { return pagination.Int(p.ID) },
	},
	DefaultSort: SortCreatedAt,
	Fields: []pagination.Field[*Post]{
		{
			Name: SortCreatedAt, Column: FieldCreatedAt, Kind: pagination.KindTimestamp,
			Value: func(p *Post) pagination.Value { return pagination.Timestamp(p.CreatedAt) },
		},
		{
			Name: SortUpdatedAt, Column: FieldUpdatedAt, Kind: pagination.KindTimestamp,
			Value: func(p *Post) pagination.Value { return pagination.Timestamp(p.UpdatedAt) },
		},
		{
			Name: SortTitle, Column: FieldTitle, Kind: pagination.KindString,
			Value: func(p *Post) pagination.Value { return pagination.String(p.Title) },
		},
	},
}

// NewPlanner construye el planner de paginación keyset para posts.
func NewPlanner() *pagination.Planner[*Post] {
	return pagination.MustPlanner(PostSortSchema)
}
