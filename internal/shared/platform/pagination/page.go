package pagination

// Page es la respuesta al cliente. Items nunca es nil y NextCursor se
// serializa como null al final de la secuencia.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"nextCursor"`
}

func NewPage[T any](items []T, next *string) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{Items: items, NextCursor: next}
}

func (p *Page[T]) HasMore() bool {
	return p.NextCursor != nil
}

// Map transforma los elementos conservando el cursor.
func Map[T, U any](p *Page[T], fn func(T) U) *Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, fn(it))
	}
	return &Page[U]{Items: out, NextCursor: p.NextCursor}
}
