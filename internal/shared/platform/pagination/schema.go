package pagination

import "fmt"

// Field es un campo ordenable: nombre público, columna en el almacenamiento,
// tipo y accesor sobre el registro.
type Field[T any] struct {
	Name   string
	Column string
	Kind   Kind
	Value  func(T) Value
}

// Schema es el conjunto cerrado de campos ordenables de un agregado.
type Schema[T any] struct {
	ID          Field[T]
	DefaultSort string
	Fields      []Field[T]
}

func (f Field[T]) validate() error {
	if f.Name == "" || f.Column == "" || f.Value == nil {
		return fmt.Errorf("pagination: field %q needs name, column and accessor", f.Name)
	}
	switch f.Kind {
	case KindNumber, KindString, KindTimestamp:
		return nil
	}
	return fmt.Errorf("pagination: field %q has unknown kind %d", f.Name, f.Kind)
}
