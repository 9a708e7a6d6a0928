package sqlcriteria

import (
	"fmt"
	"reflect"
	"time"

	shared "github.com/davicafu/postlab/internal/shared/domain"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
)

// ValueMapper adapta un valor del dominio al tipo de la columna (p.ej. fechas
// como INTEGER en SQLite).
type ValueMapper func(field string, v interface{}) interface{}

// Identity deja los valores tal cual.
func Identity(_ string, v interface{}) interface{} { return v }

// UnixMillis guarda time.Time como milisegundos Unix.
func UnixMillis(_ string, v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return t.UnixMilli()
	}
	return v
}

// Translator convierte Criteria en expresiones goqu. Columns limita los
// campos aceptados; un mapa vacío acepta cualquiera.
type Translator struct {
	Columns map[string]string
	Mapper  ValueMapper
}

// ToExpression recorre el árbol respetando AND/OR. Devuelve nil si no hay filtro.
func (t Translator) ToExpression(c shared.Criteria) (exp.Expression, error) {
	switch v := shared.Normalize(c).(type) {
	case nil:
		return nil, nil
	case shared.Criterion:
		return t.leaf(v)
	case shared.CompositeCriteria:
		children := make([]exp.Expression, 0, len(v.Criterias))
		for _, child := range v.Criterias {
			e, err := t.ToExpression(child)
			if err != nil {
				return nil, err
			}
			if e != nil {
				children = append(children, e)
			}
		}
		if v.Operator == shared.OpOr {
			return goqu.Or(children...), nil
		}
		return goqu.And(children...), nil
	default:
		return nil, fmt.Errorf("sqlcriteria: unsupported criteria %T", c)
	}
}

func (t Translator) column(field string) (string, error) {
	if len(t.Columns) == 0 {
		return field, nil
	}
	col, ok := t.Columns[field]
	if !ok {
		return "", fmt.Errorf("sqlcriteria: unknown field %q", field)
	}
	return col, nil
}

func (t Translator) mapValue(field string, v interface{}) interface{} {
	if t.Mapper == nil {
		return v
	}
	return t.Mapper(field, v)
}

func (t Translator) leaf(c shared.Criterion) (exp.Expression, error) {
	name, err := t.column(c.Field)
	if err != nil {
		return nil, err
	}
	col := goqu.C(name)
	val := t.mapValue(c.Field, c.Value)

	switch c.Op {
	case shared.OpEq:
		return col.Eq(val), nil
	case shared.OpGt:
		return col.Gt(val), nil
	case shared.OpGte:
		return col.Gte(val), nil
	case shared.OpLt:
		return col.Lt(val), nil
	case shared.OpLte:
		return col.Lte(val), nil
	case shared.OpLike:
		return col.Like(val), nil
	case shared.OpILike:
		return col.ILike(val), nil
	case shared.OpIn:
		values, err := t.list(c.Field, c.Value)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			// IN () no es SQL válido; un IN vacío no casa con nada
			return goqu.L("1 = 0"), nil
		}
		return col.In(values), nil
	}
	return nil, fmt.Errorf("sqlcriteria: unsupported operator %q", c.Op)
}

func (t Translator) list(field string, v interface{}) ([]interface{}, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("sqlcriteria: IN on %q needs a slice, got %T", field, v)
	}
	out := make([]interface{}, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out = append(out, t.mapValue(field, rv.Index(i).Interface()))
	}
	return out, nil
}

// ---------------- Orden y paginación ----------------

// OrderBy traduce el orden de un QuerySpec.
func (t Translator) OrderBy(order []pagination.Order) ([]exp.OrderedExpression, error) {
	out := make([]exp.OrderedExpression, 0, len(order))
	for _, o := range order {
		name, err := t.column(o.Field)
		if err != nil {
			return nil, err
		}
		if o.Direction == pagination.ASC {
			out = append(out, goqu.C(name).Asc())
		} else {
			out = append(out, goqu.C(name).Desc())
		}
	}
	return out, nil
}

// Apply aplica filtro, orden y límite de un QuerySpec a un SELECT.
func (t Translator) Apply(ds *goqu.SelectDataset, q pagination.QuerySpec) (*goqu.SelectDataset, error) {
	where, err := t.ToExpression(q.Filter)
	if err != nil {
		return nil, err
	}
	if where != nil {
		ds = ds.Where(where)
	}
	order, err := t.OrderBy(q.Order)
	if err != nil {
		return nil, err
	}
	if len(order) > 0 {
		ds = ds.Order(order...)
	}
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}
	return ds, nil
}
