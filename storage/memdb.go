package storage

import (
	"bytes"
	"sort"
	"strings"
	"sync"
)

// --- In-Memory DB (for testing) ---

// MemDB keeps every record in a map. Update transactions stage their writes
// and apply them only on success.
type MemDB struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: make(map[string][]byte),
	}
}

func (db *MemDB) Update(fn func(Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	tx := &memTx{db: db, writable: true, pending: make(map[string]*[]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.pending {
		if v == nil {
			delete(db.data, k)
			continue
		}
		db.data[k] = *v
	}
	return nil
}

func (db *MemDB) View(fn func(Tx) error) error {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return ErrClosed
	}
	return fn(&memTx{db: db})
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.closed = true
	return nil
}

type memTx struct {
	db       *MemDB
	writable bool
	pending  map[string]*[]byte
}

func (tx *memTx) lookup(k string) ([]byte, bool) {
	if v, ok := tx.pending[k]; ok {
		if v == nil {
			return nil, false
		}
		return *v, true
	}
	v, ok := tx.db.data[k]
	return v, ok
}

func (tx *memTx) Get(bucket, key []byte) ([]byte, error) {
	v, ok := tx.lookup(string(prefixedKey(bucket, key)))
	if !ok {
		return nil, ErrNotFound
	}
	return cloneBytes(v), nil
}

func (tx *memTx) Put(bucket, key, value []byte) error {
	if !tx.writable {
		return ErrReadOnly
	}
	v := cloneBytes(value)
	tx.pending[string(prefixedKey(bucket, key))] = &v
	return nil
}

func (tx *memTx) Insert(bucket, key, value []byte) error {
	if !tx.writable {
		return ErrReadOnly
	}
	if _, ok := tx.lookup(string(prefixedKey(bucket, key))); ok {
		return ErrKeyExists
	}
	return tx.Put(bucket, key, value)
}

func (tx *memTx) Delete(bucket, key []byte) error {
	if !tx.writable {
		return ErrReadOnly
	}
	tx.pending[string(prefixedKey(bucket, key))] = nil
	return nil
}

func (tx *memTx) ForEach(bucket []byte, fn func(key, value []byte) error) error {
	prefix := string(bucketPrefix(bucket))
	keys := make([]string, 0)
	seen := make(map[string]struct{})
	collect := func(k string) {
		if !strings.HasPrefix(k, prefix) {
			return
		}
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range tx.db.data {
		collect(k)
	}
	for k := range tx.pending {
		collect(k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare([]byte(keys[i]), []byte(keys[j])) < 0
	})
	for _, k := range keys {
		v, ok := tx.lookup(k)
		if !ok {
			continue
		}
		if err := fn([]byte(k[len(prefix):]), cloneBytes(v)); err != nil {
			return err
		}
	}
	return nil
}
