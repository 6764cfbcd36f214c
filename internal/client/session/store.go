// Package session holds the connection-scoped key/value store the connection
// manager writes tokens and PKCE state into. Two backends exist: an
// in-process cache that lives as long as the process, and a SQLite file that
// survives restarts.
package session

import "context"

// Store is a string key/value store. Get reports ok=false for absent keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// SetMany writes all pairs atomically where the backend supports it.
	SetMany(ctx context.Context, kv map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}
