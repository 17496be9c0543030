// Package store persists scope views and settings through a flat
// key-value blob store. Two backends are available: a JSON file store
// and a SQLite database, both addressed through the same KV contract.
package store

// KV is an opaque key-value blob store. Values are JSON documents read
// and written atomically per key.
type KV interface {
	// Get decodes the value under key into out and reports whether the
	// key was present.
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
	Delete(key string) error
	// Flush writes pending state to durable storage.
	Flush() error
	Close() error
}
