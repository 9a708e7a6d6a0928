package pagination

import (
	"context"
	"fmt"

	shared "github.com/davicafu/postlab/internal/shared/domain"
)

// Fetcher ejecuta un QuerySpec contra el almacenamiento y devuelve el lote
// en el orden pedido.
type Fetcher[T any] func(ctx context.Context, q QuerySpec) ([]T, error)

// Planner construye las consultas keyset y las páginas de respuesta para un
// agregado. Es inmutable y seguro para uso concurrente.
type Planner[T any] struct {
	id          Field[T]
	fields      map[string]Field[T]
	defaultSort string
}

func NewPlanner[T any](schema Schema[T]) (*Planner[T], error) {
	if err := schema.ID.validate(); err != nil {
		return nil, err
	}
	p := &Planner[T]{
		id:          schema.ID,
		fields:      make(map[string]Field[T], len(schema.Fields)+1),
		defaultSort: schema.DefaultSort,
	}
	p.fields[schema.ID.Name] = schema.ID
	for _, f := range schema.Fields {
		if err := f.validate(); err != nil {
			return nil, err
		}
		if _, dup := p.fields[f.Name]; dup && f.Name != schema.ID.Name {
			return nil, fmt.Errorf("pagination: duplicate field %q", f.Name)
		}
		p.fields[f.Name] = f
	}
	if p.defaultSort == "" {
		p.defaultSort = DefaultSortBy
	}
	if _, ok := p.fields[p.defaultSort]; !ok {
		return nil, fmt.Errorf("pagination: default sort %q is not a schema field", p.defaultSort)
	}
	return p, nil
}

// MustPlanner es NewPlanner para esquemas declarados en tiempo de compilación.
func MustPlanner[T any](schema Schema[T]) *Planner[T] {
	p, err := NewPlanner(schema)
	if err != nil {
		panic(err)
	}
	return p
}

// Lookup resuelve un nombre público de campo ordenable.
func (p *Planner[T]) Lookup(name string) (Field[T], error) {
	f, ok := p.fields[name]
	if !ok {
		return Field[T]{}, fmt.Errorf("%w: %q", ErrInvalidSortField, name)
	}
	return f, nil
}

// Normalize aplica los defaults del esquema y valida la petición.
func (p *Planner[T]) Normalize(req Request) (Request, error) {
	if req.SortBy == "" {
		req.SortBy = p.defaultSort
	}
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// ---------------- Construcción de la query ----------------

// BuildQuery añade al filtro base el predicado de frontera del cursor:
// (sort op v) OR (sort = v AND id op id), con op = > en ASC y < en DESC.
func (p *Planner[T]) BuildQuery(req Request, base shared.Criteria) (QuerySpec, error) {
	req, err := p.Normalize(req)
	if err != nil {
		return QuerySpec{}, err
	}
	field, err := p.Lookup(req.SortBy)
	if err != nil {
		return QuerySpec{}, err
	}

	filter := base
	if req.Cursor != "" {
		boundary, err := p.boundary(req, field)
		if err != nil {
			return QuerySpec{}, err
		}
		filter = shared.And(base, boundary)
	}

	order := []Order{
		{Field: field.Column, Direction: req.SortOrder},
		{Field: p.id.Column, Direction: req.SortOrder},
	}
	return QuerySpec{Filter: filter, Order: order, Limit: req.Limit + 1}, nil
}

func (p *Planner[T]) boundary(req Request, field Field[T]) (shared.Criteria, error) {
	cur, err := DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}
	if cur.SortBy != req.SortBy {
		return nil, fmt.Errorf("%w: cursor %q, request %q", ErrCursorMismatch, cur.SortBy, req.SortBy)
	}
	coerceValue := coerce
	if field.Column == p.id.Column {
		coerceValue = coerceID
	}
	value, err := coerceValue(cur.Value, field.Kind)
	if err != nil {
		return nil, err
	}
	id, err := coerceID(cur.ID, p.id.Kind)
	if err != nil {
		return nil, err
	}

	op := shared.OpLt
	if req.SortOrder == ASC {
		op = shared.OpGt
	}
	past := shared.Criterion{Field: field.Column, Op: op, Value: value.Raw()}
	if field.Column == p.id.Column {
		return past, nil
	}
	return shared.Or(
		past,
		shared.And(
			shared.Criterion{Field: field.Column, Op: shared.OpEq, Value: value.Raw()},
			shared.Criterion{Field: p.id.Column, Op: op, Value: id.Raw()},
		),
	), nil
}

// ---------------- Construcción de la respuesta ----------------

// BuildPage recorta la fila de sondeo y genera el cursor a partir del último
// elemento devuelto.
func (p *Planner[T]) BuildPage(req Request, batch []T) (*Page[T], error) {
	req, err := p.Normalize(req)
	if err != nil {
		return nil, err
	}
	field, err := p.Lookup(req.SortBy)
	if err != nil {
		return nil, err
	}

	hasMore := len(batch) > req.Limit
	items := batch
	if hasMore {
		items = batch[:req.Limit]
	}
	page := NewPage(items, nil)
	if !hasMore {
		return page, nil
	}

	last := items[len(items)-1]
	token, err := EncodeCursor(Cursor{
		Value:  forCursor(field.Value(last)),
		ID:     forCursor(p.id.Value(last)),
		SortBy: req.SortBy,
	})
	if err != nil {
		return nil, err
	}
	page.NextCursor = &token
	return page, nil
}

// Paginate encadena BuildQuery, fetch y BuildPage. Los errores de fetch se
// devuelven envueltos sin alterar.
func (p *Planner[T]) Paginate(ctx context.Context, req Request, base shared.Criteria, fetch Fetcher[T]) (*Page[T], error) {
	q, err := p.BuildQuery(req, base)
	if err != nil {
		return nil, err
	}
	batch, err := fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	return p.BuildPage(req, batch)
}
