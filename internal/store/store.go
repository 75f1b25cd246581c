package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("settings key not found")

// Store is the key/value settings store the pipeline persists into.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Batcher is implemented by stores that can write several keys as one unit.
type Batcher interface {
	SetMany(ctx context.Context, values map[string]string) error
}

// SetMany writes every pair in values. Stores implementing Batcher write them all or
// none; otherwise pairs are written one by one, stopping at the first error.
func SetMany(ctx context.Context, s Store, values map[string]string) error {
	if b, ok := s.(Batcher); ok {
		return b.SetMany(ctx, values)
	}
	for k, v := range values {
		if err := s.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
