package storage

import (
	"errors"
)

var (
	// ErrNotFound is returned when a key does not exist in a bucket.
	ErrNotFound = errors.New("storage: key not found")
	// ErrKeyExists is returned by Insert when the key is already present.
	ErrKeyExists = errors.New("storage: key already exists")
	// ErrReadOnly is returned when a write is attempted inside View.
	ErrReadOnly = errors.New("storage: read-only transaction")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("storage: database closed")
)

// Tx is a single atomic unit of work. Writes become visible to other
// transactions only when the enclosing Update returns nil.
type Tx interface {
	Get(bucket, key []byte) ([]byte, error)
	Put(bucket, key, value []byte) error
	// Insert writes a new key and fails with ErrKeyExists instead of
	// overwriting an existing one.
	Insert(bucket, key, value []byte) error
	Delete(bucket, key []byte) error
	// ForEach visits every key in the bucket in ascending byte order. fn must
	// not mutate the bucket.
	ForEach(bucket []byte, fn func(key, value []byte) error) error
}

// Database is a generic interface for a transactional key-value store.
// This allows the node to use any database backend (in-memory or persistent).
type Database interface {
	// Update runs fn in a read-write transaction. Returning an error from fn
	// discards every write made inside it.
	Update(fn func(Tx) error) error
	// View runs fn in a read-only transaction.
	View(fn func(Tx) error) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory  = "memory"
	BackendBolt    = "bolt"
	BackendLevelDB = "leveldb"
)

// Open constructs the named backend rooted at path.
func Open(backend, path string) (Database, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemDB(), nil
	case BackendBolt:
		return NewBoltDB(path)
	case BackendLevelDB:
		return NewLevelDB(path)
	default:
		return nil, errors.New("storage: unknown backend " + backend)
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// prefixedKey flattens a bucket and key into one namespace for backends
// without native buckets. The bucket length byte keeps prefixes unambiguous.
func prefixedKey(bucket, key []byte) []byte {
	out := make([]byte, 0, 1+len(bucket)+len(key))
	out = append(out, byte(len(bucket)))
	out = append(out, bucket...)
	out = append(out, key...)
	return out
}

func bucketPrefix(bucket []byte) []byte {
	return prefixedKey(bucket, nil)
}
