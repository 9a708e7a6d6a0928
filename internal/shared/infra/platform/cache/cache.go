package cache

import (
	"context"
)

// Cache es una caché clave-valor que serializa en JSON.
type Cache interface {
	// Get rellena dest (puntero). Devuelve (false, nil) en un miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set guarda el valor con TTL en segundos; 0 usa el TTL por defecto del adapter.
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error

	Delete(ctx context.Context, key string) error
}
