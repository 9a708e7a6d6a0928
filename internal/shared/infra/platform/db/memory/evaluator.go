package memory

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	shared "github.com/davicafu/postlab/internal/shared/domain"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
	"github.com/google/uuid"
)

var (
	ErrNotComparable = errors.New("values are not comparable")
	ErrNotFound      = errors.New("record not found")
)

// Accessor devuelve el valor de una columna de un registro.
type Accessor[T any] func(item T, field string) (interface{}, bool)

// Query evalúa un QuerySpec sobre un slice: filtra, ordena y limita.
func Query[T any](items []T, q pagination.QuerySpec, get Accessor[T]) ([]T, error) {
	filter := shared.Normalize(q.Filter)
	out := make([]T, 0, len(items))
	for _, it := range items {
		it := it
		ok, err := Match(filter, func(f string) (interface{}, bool) { return get(it, f) })
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	if err := Sort(out, q.Order, get); err != nil {
		return nil, err
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Sort ordena de forma estable según las entradas de order.
func Sort[T any](items []T, order []pagination.Order, get Accessor[T]) error {
	var cmpErr error
	sort.SliceStable(items, func(i, j int) bool {
		for _, o := range order {
			a, _ := get(items[i], o.Field)
			b, _ := get(items[j], o.Field)
			c, err := Compare(a, b)
			if err != nil {
				cmpErr = err
				return false
			}
			if c == 0 {
				continue
			}
			if o.Direction == pagination.DESC {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return cmpErr
}

// Match evalúa un criterio (ya normalizado o no) usando get para leer campos.
func Match(c shared.Criteria, get func(field string) (interface{}, bool)) (bool, error) {
	switch v := shared.Normalize(c).(type) {
	case nil:
		return true, nil
	case shared.Criterion:
		return matchLeaf(v, get)
	case shared.CompositeCriteria:
		for _, child := range v.Criterias {
			ok, err := Match(child, get)
			if err != nil {
				return false, err
			}
			if v.Operator == shared.OpOr && ok {
				return true, nil
			}
			if v.Operator != shared.OpOr && !ok {
				return false, nil
			}
		}
		return v.Operator != shared.OpOr, nil
	default:
		return false, fmt.Errorf("memory: unsupported criteria %T", c)
	}
}

func matchLeaf(c shared.Criterion, get func(string) (interface{}, bool)) (bool, error) {
	actual, ok := get(c.Field)
	if !ok {
		return false, fmt.Errorf("memory: unknown field %q", c.Field)
	}
	switch c.Op {
	case shared.OpLike, shared.OpILike:
		s, ok1 := actual.(string)
		pattern, ok2 := c.Value.(string)
		if !ok1 || !ok2 {
			return false, fmt.Errorf("memory: %s needs strings on %q", c.Op, c.Field)
		}
		return likeRegexp(pattern, c.Op == shared.OpILike).MatchString(s), nil
	case shared.OpIn:
		rv := reflect.ValueOf(c.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false, fmt.Errorf("memory: IN needs a slice on %q", c.Field)
		}
		for i := 0; i < rv.Len(); i++ {
			cmp, err := Compare(actual, rv.Index(i).Interface())
			if err != nil {
				return false, err
			}
			if cmp == 0 {
				return true, nil
			}
		}
		return false, nil
	}

	cmp, err := Compare(actual, c.Value)
	if err != nil {
		return false, fmt.Errorf("memory: field %q: %w", c.Field, err)
	}
	switch c.Op {
	case shared.OpEq:
		return cmp == 0, nil
	case shared.OpGt:
		return cmp > 0, nil
	case shared.OpGte:
		return cmp >= 0, nil
	case shared.OpLt:
		return cmp < 0, nil
	case shared.OpLte:
		return cmp <= 0, nil
	}
	return false, fmt.Errorf("memory: unsupported operator %q", c.Op)
}

// Compare devuelve -1, 0 o 1. Los enteros se comparan como int64 y se
// promueven a float64 solo si uno de los dos lados es decimal.
func Compare(a, b interface{}) (int, error) {
	if ai, ok := asInt(a); ok {
		if bi, ok := asInt(b); ok {
			return cmp3(ai < bi, ai > bi), nil
		}
	}
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return cmp3(af < bf, af > bf), nil
		}
	}
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv), nil
		}
		if bv, ok := b.(uuid.UUID); ok {
			return strings.Compare(av, bv.String()), nil
		}
	case uuid.UUID:
		switch bv := b.(type) {
		case uuid.UUID:
			return strings.Compare(av.String(), bv.String()), nil
		case string:
			return strings.Compare(av.String(), bv), nil
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv), nil
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return cmp3(!av && bv, av && !bv), nil
		}
	}
	return 0, fmt.Errorf("%w: %T vs %T", ErrNotComparable, a, b)
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

func asInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func asFloat(v interface{}) (float64, bool) {
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// likeRegexp traduce un patrón SQL LIKE (% y _) a una expresión regular anclada.
func likeRegexp(pattern string, insensitive bool) *regexp.Regexp {
	var b strings.Builder
	if insensitive {
		b.WriteString("(?is)")
	} else {
		b.WriteString("(?s)")
	}
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
