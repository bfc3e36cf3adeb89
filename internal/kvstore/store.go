// Package kvstore provides the ordered byte-map abstraction the rest of
// the indexer is built on: point get/put/delete, a lexicographically
// ordered prefix scan, and an all-or-nothing atomic batch write. The
// concrete engine is opaque to every other package; only this file and
// its bbolt-backed implementation know that bbolt is underneath.
package kvstore

import (
	"errors"

	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
)

// OpKind distinguishes a batch write from a delete within an Op.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one mutation within an atomic Batch.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte // unused when Kind == OpDelete
}

// Iterator walks keys in lexicographic order over a prefix scan. Next must
// be called before the first Key/Value access, matching the bufio.Scanner
// convention used throughout this codebase's ancestry.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// Store is the KV adapter contract (component C1). Get returns
// (nil, kerrors.ErrNotFound) for an absent key, never a bare nil error with
// nil value, so callers can use errors.Is unambiguously.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	ScanPrefix(prefix []byte) Iterator
	ApplyBatch(ops []Op) error
	Close() error
}

// PutOp appends a put Op to ops; a small helper so pipeline/runtime code
// doesn't repeat the struct literal.
func PutOp(ops []Op, key, value []byte) []Op {
	return append(ops, Op{Kind: OpPut, Key: key, Value: value})
}

// DeleteOp appends a delete Op to ops.
func DeleteOp(ops []Op, key []byte) []Op {
	return append(ops, Op{Kind: OpDelete, Key: key})
}

// IsNotFound reports whether err is (or wraps) kerrors.ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, kerrors.ErrNotFound) }
