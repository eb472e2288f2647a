// Package storage provides the key/value tiers the client keeps its session
// in: a durable one that survives restarts and a session one that lives only
// as long as the process.
package storage

import "context"

// Tier is a flat key/value store. Get returns (nil, nil) for a missing key.
type Tier interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	List(ctx context.Context) (map[string][]byte, error)

	// SetMany and DeleteMany apply all changes or none.
	SetMany(ctx context.Context, values map[string][]byte) error
	DeleteMany(ctx context.Context, keys ...string) error
}
