package kvstore

import (
	"bytes"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
)

// bucketName is the single flat bucket the indexer uses; spec §3 defines
// one flat key namespace (sttoken_, stbalance_, ..., runtime_*) rather
// than per-entity buckets, so the bbolt schema mirrors that directly
// instead of the Rubin node's per-purpose bucket split.
var bucketName = []byte("krc20")

// BoltStore is the production Store backed by go.etcd.io/bbolt, grounded
// on the Rubin node's store/db.go bucket-per-concern layout, generalized
// to a single flat bucket per spec §3's key namespace.
type BoltStore struct {
	db *bolt.DB
}

// Open opens (creating if necessary) a bbolt database at path and ensures
// the flat bucket exists.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open bbolt %s: %v", kerrors.ErrKvIO, path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create bucket: %v", kerrors.ErrKvIO, err)
	}
	return &BoltStore{db: db}, nil
}

// OpenReadOnly opens path under bbolt's shared-lock read-only mode, so the
// query surface can run alongside the writer process without contending
// for its exclusive file lock. Put/Delete/ApplyBatch on the result fail.
func OpenReadOnly(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("%w: open bbolt %s read-only: %v", kerrors.ErrKvIO, path, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: get: %v", kerrors.ErrKvIO, err)
	}
	if out == nil {
		return nil, kerrors.ErrNotFound
	}
	return out, nil
}

func (s *BoltStore) Put(key, value []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("%w: put: %v", kerrors.ErrKvIO, err)
	}
	return nil
}

func (s *BoltStore) Delete(key []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: delete: %v", kerrors.ErrKvIO, err)
	}
	return nil
}

// ApplyBatch applies every Op within a single bbolt transaction, giving
// all-or-nothing atomicity and durability on return, per spec §4.1.
func (s *BoltStore) ApplyBatch(ops []Op) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		for _, op := range ops {
			switch op.Kind {
			case OpPut:
				if err := b.Put(op.Key, op.Value); err != nil {
					return err
				}
			case OpDelete:
				if err := b.Delete(op.Key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: apply batch: %v", kerrors.ErrKvIO, err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", kerrors.ErrKvIO, err)
	}
	return nil
}

// ScanPrefix returns keys with the given prefix in lexicographic (bbolt
// cursor) order.
func (s *BoltStore) ScanPrefix(prefix []byte) Iterator {
	tx, err := s.db.Begin(false)
	if err != nil {
		return &errIterator{err: fmt.Errorf("%w: begin scan: %v", kerrors.ErrKvIO, err)}
	}
	c := tx.Bucket(bucketName).Cursor()
	return &boltIterator{tx: tx, cursor: c, prefix: prefix, started: false}
}

type boltIterator struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	prefix  []byte
	started bool
	k, v    []byte
}

func (it *boltIterator) Next() bool {
	var k, v []byte
	if !it.started {
		it.started = true
		k, v = it.cursor.Seek(it.prefix)
	} else {
		k, v = it.cursor.Next()
	}
	if k == nil || !bytes.HasPrefix(k, it.prefix) {
		it.k, it.v = nil, nil
		return false
	}
	it.k = append([]byte(nil), k...)
	it.v = append([]byte(nil), v...)
	return true
}

func (it *boltIterator) Key() []byte   { return it.k }
func (it *boltIterator) Value() []byte { return it.v }
func (it *boltIterator) Error() error  { return nil }
func (it *boltIterator) Close() error {
	return it.tx.Rollback()
}

type errIterator struct{ err error }

func (it *errIterator) Next() bool    { return false }
func (it *errIterator) Key() []byte   { return nil }
func (it *errIterator) Value() []byte { return nil }
func (it *errIterator) Error() error  { return it.err }
func (it *errIterator) Close() error  { return nil }
