package pagination

import (
	"fmt"
	"strings"

	shared "github.com/davicafu/postlab/internal/shared/domain"
)

// ---------------- Parámetros de paginación ----------------

type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

const (
	DefaultSortBy    = "createdAt"
	DefaultSortOrder = DESC
	DefaultLimit     = 10
	MaxLimit         = 1000
)

// Request llega desde el transporte. Los campos vacíos toman los valores por
// defecto; Limit 0 significa "no enviado", el transporte rechaza un 0 explícito.
type Request struct {
	Cursor    string    `json:"cursor,omitempty"`
	SortBy    string    `json:"sortBy,omitempty"`
	SortOrder Direction `json:"sortOrder,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Normalize aplica los valores por defecto sin validar.
func (r Request) Normalize() Request {
	if r.SortBy == "" {
		r.SortBy = DefaultSortBy
	}
	r.SortOrder = Direction(strings.ToUpper(string(r.SortOrder)))
	if r.SortOrder == "" {
		r.SortOrder = DefaultSortOrder
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	return r
}

// Validate comprueba una petición ya normalizada.
func (r Request) Validate() error {
	if r.Limit < 1 || r.Limit > MaxLimit {
		return fmt.Errorf("%w: got %d", ErrInvalidLimit, r.Limit)
	}
	if r.SortOrder != ASC && r.SortOrder != DESC {
		return fmt.Errorf("%w: got %q", ErrInvalidSortOrder, r.SortOrder)
	}
	return nil
}

// ---------------- Query para el almacenamiento ----------------

// Order es una entrada del ORDER BY, ya en nombre de columna.
type Order struct {
	Field     string
	Direction Direction
}

// QuerySpec es lo que ejecuta el adapter de almacenamiento. Order siempre
// tiene dos entradas (campo de orden, id) y Limit incluye la fila de sondeo.
type QuerySpec struct {
	Filter shared.Criteria
	Order  []Order
	Limit  int
}
