package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind identifica el tipo de un Value y, en un Field, el tipo de la columna.
type Kind uint8

const (
	KindNumber Kind = iota + 1
	KindString
	KindTimestamp
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	}
	return "unknown"
}

// Value es el valor de un campo ordenable. Los números guardan su literal
// decimal para que ids grandes no pierdan precisión al pasar por el cursor.
type Value struct {
	kind Kind
	num  json.Number
	str  string
	ts   time.Time
}

func Number(n json.Number) Value { return Value{kind: KindNumber, num: n} }

func Int(i int64) Value { return Number(json.Number(strconv.FormatInt(i, 10))) }

func Float(f float64) Value {
	return Number(json.Number(strconv.FormatFloat(f, 'f', -1, 64)))
}

func String(s string) Value { return Value{kind: KindString, str: s} }

// Timestamp se trunca a milisegundos, la precisión del cursor.
func Timestamp(t time.Time) Value {
	return Value{kind: KindTimestamp, ts: t.UTC().Truncate(time.Millisecond)}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsZero() bool { return v.kind == 0 }

// Raw devuelve el valor nativo que entienden los traductores de Criteria:
// int64 o float64 para números, string, o time.Time.
func (v Value) Raw() interface{} {
	switch v.kind {
	case KindNumber:
		if i, err := v.num.Int64(); err == nil {
			return i
		}
		if f, err := v.num.Float64(); err == nil {
			return f
		}
		return v.num.String()
	case KindString:
		return v.str
	case KindTimestamp:
		return v.ts
	}
	return nil
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindTimestamp:
		return v.ts.Equal(o.ts)
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return v.num.String()
	case KindString:
		return strconv.Quote(v.str)
	case KindTimestamp:
		return v.ts.Format(time.RFC3339Nano)
	}
	return "<nil>"
}

// MarshalJSON escribe los timestamps como milisegundos Unix.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return []byte(v.num.String()), nil
	case KindString:
		return json.Marshal(v.str)
	case KindTimestamp:
		return []byte(strconv.FormatInt(v.ts.UnixMilli(), 10)), nil
	}
	return nil, fmt.Errorf("pagination: cannot marshal empty value")
}

// UnmarshalJSON solo produce números o strings. Reinterpretar un número como
// timestamp es responsabilidad del planner.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case json.Number:
		*v = Number(t)
	case string:
		*v = String(t)
	default:
		return fmt.Errorf("pagination: unsupported cursor scalar %T", raw)
	}
	return nil
}

// Rango aceptado para timestamps del cursor: años 0001 a 9999.
var (
	minCursorMillis = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	maxCursorMillis = time.Date(9999, 12, 31, 23, 59, 59, 999e6, time.UTC).UnixMilli()
)

// coerce adapta un valor decodificado del cursor al tipo del campo.
func coerce(v Value, kind Kind) (Value, error) {
	switch kind {
	case KindTimestamp:
		if v.kind == KindTimestamp {
			return v, nil
		}
		if v.kind != KindNumber {
			return Value{}, fmt.Errorf("%w: expected epoch millis, got %s", ErrInvalidCursor, v.kind)
		}
		ms, err := v.num.Int64()
		if err != nil || ms < minCursorMillis || ms > maxCursorMillis {
			return Value{}, fmt.Errorf("%w: bad timestamp %q", ErrInvalidCursor, v.num)
		}
		return Timestamp(time.UnixMilli(ms)), nil
	case KindNumber:
		if v.kind != kind {
			return Value{}, fmt.Errorf("%w: expected %s, got %s", ErrInvalidCursor, kind, v.kind)
		}
		if isIntegerLiteral(v.num) {
			if _, err := v.num.Int64(); err != nil {
				return Value{}, fmt.Errorf("%w: integer out of range %q", ErrInvalidCursor, v.num)
			}
		}
		return v, nil
	case KindString:
		if v.kind != kind {
			return Value{}, fmt.Errorf("%w: expected %s, got %s", ErrInvalidCursor, kind, v.kind)
		}
		return v, nil
	}
	return Value{}, fmt.Errorf("%w: unknown field kind %d", ErrInvalidSortField, kind)
}

// coerceID es coerce para la columna de desempate: un id numérico tiene que
// ser un entero int64.
func coerceID(v Value, kind Kind) (Value, error) {
	v, err := coerce(v, kind)
	if err != nil {
		return Value{}, err
	}
	if v.kind == KindNumber {
		if _, err := v.num.Int64(); err != nil {
			return Value{}, fmt.Errorf("%w: id must be an integer, got %q", ErrInvalidCursor, v.num)
		}
	}
	return v, nil
}

func isIntegerLiteral(n json.Number) bool {
	return !strings.ContainsAny(n.String(), ".eE")
}

// forCursor convierte el valor de un registro al escalar que viaja en el cursor.
func forCursor(v Value) Value {
	if v.kind == KindTimestamp {
		return Int(v.ts.UnixMilli())
	}
	return v
}
