package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	bolt, err := NewBoltDB(filepath.Join(dir, "state.bolt"))
	require.NoError(t, err)
	level, err := NewLevelDB(filepath.Join(dir, "leveldb"))
	require.NoError(t, err)
	dbs := map[string]Database{
		BackendMemory:  NewMemDB(),
		BackendBolt:    bolt,
		BackendLevelDB: level,
	}
	t.Cleanup(func() {
		for _, db := range dbs {
			_ = db.Close()
		}
	})
	return dbs
}

var (
	bucketA = []byte("a")
	bucketB = []byte("ab")
)

func TestInsertRejectsDuplicates(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Update(func(tx Tx) error {
				return tx.Insert(bucketA, []byte("k"), []byte("v1"))
			}))
			err := db.Update(func(tx Tx) error {
				return tx.Insert(bucketA, []byte("k"), []byte("v2"))
			})
			require.ErrorIs(t, err, ErrKeyExists)
			require.NoError(t, db.View(func(tx Tx) error {
				v, err := tx.Get(bucketA, []byte("k"))
				require.NoError(t, err)
				require.Equal(t, []byte("v1"), v)
				return nil
			}))
		})
	}
}

func TestFailedUpdateRollsBack(t *testing.T) {
	boom := errors.New("boom")
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Update(func(tx Tx) error {
				return tx.Put(bucketA, []byte("x"), []byte("1"))
			}))
			err := db.Update(func(tx Tx) error {
				if err := tx.Put(bucketA, []byte("x"), []byte("2")); err != nil {
					return err
				}
				if err := tx.Put(bucketA, []byte("y"), []byte("3")); err != nil {
					return err
				}
				v, err := tx.Get(bucketA, []byte("x"))
				require.NoError(t, err)
				require.Equal(t, []byte("2"), v, "writes must be visible inside the transaction")
				return boom
			})
			require.ErrorIs(t, err, boom)
			require.NoError(t, db.View(func(tx Tx) error {
				v, err := tx.Get(bucketA, []byte("x"))
				require.NoError(t, err)
				require.Equal(t, []byte("1"), v)
				_, err = tx.Get(bucketA, []byte("y"))
				require.ErrorIs(t, err, ErrNotFound)
				return nil
			}))
		})
	}
}

func TestForEachIsScopedToBucket(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Update(func(tx Tx) error {
				require.NoError(t, tx.Put(bucketA, []byte("2"), []byte("two")))
				require.NoError(t, tx.Put(bucketA, []byte("1"), []byte("one")))
				require.NoError(t, tx.Put(bucketB, []byte("1"), []byte("other")))
				require.NoError(t, tx.Put(bucketA, []byte("3"), []byte("three")))
				return tx.Delete(bucketA, []byte("3"))
			}))
			var keys []string
			require.NoError(t, db.View(func(tx Tx) error {
				return tx.ForEach(bucketA, func(k, v []byte) error {
					keys = append(keys, string(k)+"="+string(v))
					return nil
				})
			}))
			require.Equal(t, []string{"1=one", "2=two"}, keys)
		})
	}
}

func TestViewIsReadOnly(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := db.View(func(tx Tx) error {
				return tx.Put(bucketA, []byte("k"), []byte("v"))
			})
			require.ErrorIs(t, err, ErrReadOnly)
			err = db.View(func(tx Tx) error {
				_, err := tx.Get([]byte("missing"), []byte("k"))
				return err
			})
			require.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("cassandra", t.TempDir())
	require.Error(t, err)
	db, err := Open(BackendMemory, "")
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.ErrorIs(t, db.Update(func(Tx) error { return nil }), ErrClosed)
}
