package storage

import "context"

// Backend defines the key-value storage contract used to persist selection
// state between runs. Values are plain strings; structured values (such as
// the comparison list) are encoded by the caller.
//
// Every operation may fail independently. Callers in the core treat failures
// as non-fatal: reads degrade to "nothing saved" and writes are logged and
// dropped. Implementations must be safe for concurrent use.
type Backend interface {
	// Get returns the value stored under key. The boolean is false when the
	// key does not exist, in which case the error is nil.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// RemoveMany deletes all given keys. Missing keys are ignored.
	RemoveMany(ctx context.Context, keys ...string) error

	// Close releases any resources held by the backend (connections, files).
	Close() error
}
