// storage/store.go
package storage

// Store is the persistent key-value contract the rewards core writes through.
// Get returns (nil, nil) for a missing key. Implementations may fail on any
// call; callers treat write failures as non-fatal and keep serving from memory.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
}
