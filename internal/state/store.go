package state

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned when a key has no record.
var ErrNotFound = errors.New("asset not found")

// Store is the ledger accessor. Records are persisted as documents under a
// natural key. Operations are atomic per key only; there is no cross-key
// transaction, so every multi-entity operation above this interface is a
// sequence of independent reads and writes.
type Store interface {
	// Get decodes the record stored under key into out.
	// Returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string, out interface{}) error
	// Exists reports whether key holds a record.
	Exists(ctx context.Context, key string) (bool, error)
	// Put writes the record under key, replacing any previous value.
	Put(ctx context.Context, key string, record interface{}) error
	// Delete removes the record under key.
	Delete(ctx context.Context, key string) error
	// Query decodes every record matching selector into out (a pointer to
	// a slice). The result set is fully drained before returning; callers
	// must not rely on any particular ordering.
	Query(ctx context.Context, selector bson.M, out interface{}) error
}
