package storage

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltDB stores each bucket as a native bbolt bucket.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB opens (or creates) a bbolt file at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	return &BoltDB{db: db}, nil
}

func (b *BoltDB) Update(fn func(Tx) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (b *BoltDB) View(fn func(Tx) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

// Close releases the underlying Bolt database handle.
func (b *BoltDB) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) bucket(name []byte, create bool) (*bolt.Bucket, error) {
	if !create {
		return t.tx.Bucket(name), nil
	}
	if !t.tx.Writable() {
		return nil, ErrReadOnly
	}
	return t.tx.CreateBucketIfNotExists(name)
}

func (t *boltTx) Get(bucket, key []byte) ([]byte, error) {
	b, _ := t.bucket(bucket, false)
	if b == nil {
		return nil, ErrNotFound
	}
	v := b.Get(key)
	if v == nil {
		return nil, ErrNotFound
	}
	// Bolt memory is only valid for the life of the transaction.
	return cloneBytes(v), nil
}

func (t *boltTx) Put(bucket, key, value []byte) error {
	b, err := t.bucket(bucket, true)
	if err != nil {
		return err
	}
	return b.Put(key, value)
}

func (t *boltTx) Insert(bucket, key, value []byte) error {
	b, err := t.bucket(bucket, true)
	if err != nil {
		return err
	}
	if b.Get(key) != nil {
		return ErrKeyExists
	}
	return b.Put(key, value)
}

func (t *boltTx) Delete(bucket, key []byte) error {
	b, err := t.bucket(bucket, true)
	if err != nil {
		return err
	}
	return b.Delete(key)
}

func (t *boltTx) ForEach(bucket []byte, fn func(key, value []byte) error) error {
	b, _ := t.bucket(bucket, false)
	if b == nil {
		return nil
	}
	return b.ForEach(func(k, v []byte) error {
		return fn(cloneBytes(k), cloneBytes(v))
	})
}
