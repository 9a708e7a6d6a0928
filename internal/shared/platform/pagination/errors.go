package pagination

import "errors"

var (
	ErrInvalidCursor    = errors.New("invalid cursor")
	ErrCursorMismatch   = errors.New("cursor sortBy does not match request sortBy")
	ErrInvalidSortField = errors.New("invalid sort field")
	ErrInvalidLimit     = errors.New("limit must be between 1 and 1000")
	ErrInvalidSortOrder = errors.New("sortOrder must be ASC or DESC")
)

const (
	CodeInvalidCursor     = "INVALID_CURSOR"
	CodeCursorMismatch    = "CURSOR_MISMATCH"
	CodeInvalidSortField  = "INVALID_SORT_FIELD"
	CodeInvalidPagination = "INVALID_PAGINATION"
)

// Code devuelve el código de cliente de un error del motor, o "" si err no
// proviene de este paquete.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCursor):
		return CodeInvalidCursor
	case errors.Is(err, ErrCursorMismatch):
		return CodeCursorMismatch
	case errors.Is(err, ErrInvalidSortField):
		return CodeInvalidSortField
	case errors.Is(err, ErrInvalidLimit), errors.Is(err, ErrInvalidSortOrder):
		return CodeInvalidPagination
	}
	return ""
}

// IsClientError indica si err es un error de entrada del motor.
func IsClientError(err error) bool {
	return Code(err) != ""
}
