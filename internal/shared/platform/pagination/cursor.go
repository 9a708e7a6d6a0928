package pagination

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Cursor marca la posición del último registro visto.
type Cursor struct {
	Value  Value  `json:"value"`
	ID     Value  `json:"id"`
	SortBy string `json:"sortBy"`
}

// wireCursor distingue campos ausentes de valores vacíos al decodificar.
type wireCursor struct {
	Value  *Value  `json:"value"`
	ID     *Value  `json:"id"`
	SortBy *string `json:"sortBy"`
}

// EncodeCursor serializa el cursor como JSON compacto en base64 URL-safe sin padding.
func EncodeCursor(c Cursor) (string, error) {
	if c.SortBy == "" || c.Value.IsZero() || c.ID.IsZero() {
		return "", fmt.Errorf("%w: incomplete cursor", ErrInvalidCursor)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeCursor invierte EncodeCursor. Acepta también tokens con padding.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		raw, err = base64.URLEncoding.DecodeString(token)
		if err != nil {
			return Cursor{}, fmt.Errorf("%w: not base64url", ErrInvalidCursor)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var w wireCursor
	if err := dec.Decode(&w); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return Cursor{}, fmt.Errorf("%w: trailing data after cursor", ErrInvalidCursor)
	}
	if w.Value == nil || w.ID == nil || w.SortBy == nil || *w.SortBy == "" {
		return Cursor{}, fmt.Errorf("%w: missing value, id or sortBy", ErrInvalidCursor)
	}
	return Cursor{Value: *w.Value, ID: *w.ID, SortBy: *w.SortBy}, nil
}
