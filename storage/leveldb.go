package storage

import (
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// --- Persistent DB (for production) ---

// LevelDB is a persistent key-value store using LevelDB. Update uses an
// OpenTransaction so partial writes are never committed; View reads from a
// snapshot.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (ldb *LevelDB) Update(fn func(Tx) error) error {
	tr, err := ldb.db.OpenTransaction()
	if err != nil {
		return err
	}
	if err := fn(&levelTx{tr: tr}); err != nil {
		tr.Discard()
		return err
	}
	return tr.Commit()
}

func (ldb *LevelDB) View(fn func(Tx) error) error {
	snap, err := ldb.db.GetSnapshot()
	if err != nil {
		return err
	}
	defer snap.Release()
	return fn(&levelTx{snap: snap})
}

// Close closes the database connection.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}

type levelTx struct {
	tr   *leveldb.Transaction
	snap *leveldb.Snapshot
}

func (tx *levelTx) Get(bucket, key []byte) ([]byte, error) {
	var (
		v   []byte
		err error
	)
	if tx.tr != nil {
		v, err = tx.tr.Get(prefixedKey(bucket, key), nil)
	} else {
		v, err = tx.snap.Get(prefixedKey(bucket, key), nil)
	}
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return v, err
}

func (tx *levelTx) Put(bucket, key, value []byte) error {
	if tx.tr == nil {
		return ErrReadOnly
	}
	return tx.tr.Put(prefixedKey(bucket, key), value, nil)
}

func (tx *levelTx) Insert(bucket, key, value []byte) error {
	if tx.tr == nil {
		return ErrReadOnly
	}
	exists, err := tx.tr.Has(prefixedKey(bucket, key), nil)
	if err != nil {
		return err
	}
	if exists {
		return ErrKeyExists
	}
	return tx.tr.Put(prefixedKey(bucket, key), value, nil)
}

func (tx *levelTx) Delete(bucket, key []byte) error {
	if tx.tr == nil {
		return ErrReadOnly
	}
	return tx.tr.Delete(prefixedKey(bucket, key), nil)
}

func (tx *levelTx) ForEach(bucket []byte, fn func(key, value []byte) error) error {
	prefix := bucketPrefix(bucket)
	rng := util.BytesPrefix(prefix)
	var it interface {
		Next() bool
		Key() []byte
		Value() []byte
		Release()
		Error() error
	}
	if tx.tr != nil {
		it = tx.tr.NewIterator(rng, nil)
	} else {
		it = tx.snap.NewIterator(rng, nil)
	}
	defer it.Release()
	for it.Next() {
		if err := fn(cloneBytes(it.Key()[len(prefix):]), cloneBytes(it.Value())); err != nil {
			return err
		}
	}
	return it.Error()
}
