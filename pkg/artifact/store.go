package artifact

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("artifact: not found")
	// ErrKeyInvalid is returned for keys that are empty or escape the store root.
	ErrKeyInvalid = errors.New("artifact: invalid key")
	// ErrCorrupt is returned when a stored bundle or pointer cannot be decoded.
	ErrCorrupt = errors.New("artifact: corrupt object")
)

// Store is a flat object store addressed by slash-separated keys.
// A Put must either fully replace the object or leave the old one in place.
type Store interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}
