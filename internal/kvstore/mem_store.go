package kvstore

import (
	"bytes"
	"sort"
	"sync"

	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
)

// MemStore is an in-memory Store used by unit tests that don't need a real
// bbolt file. It is grounded on the teacher ledger's State map plus
// PrefixIterator (core/ledger.go), corrected to iterate in lexicographic
// key order since ScanPrefix's ordering is a hard contract of spec §4.1
// (the teacher's map-range iterator has no such guarantee).
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (s *MemStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, kerrors.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *MemStore) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (s *MemStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

func (s *MemStore) ApplyBatch(ops []Op) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			s.data[string(op.Key)] = append([]byte(nil), op.Value...)
		case OpDelete:
			delete(s.data, string(op.Key))
		}
	}
	return nil
}

func (s *MemStore) Close() error { return nil }

func (s *MemStore) ScanPrefix(prefix []byte) Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if bytes.HasPrefix([]byte(k), prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		vals[i] = s.data[k]
	}
	return &memIterator{keys: keys, values: vals, idx: -1}
}

type memIterator struct {
	keys   []string
	values [][]byte
	idx    int
}

func (it *memIterator) Next() bool { it.idx++; return it.idx < len(it.keys) }
func (it *memIterator) Key() []byte {
	if it.idx < 0 || it.idx >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.idx])
}
func (it *memIterator) Value() []byte {
	if it.idx < 0 || it.idx >= len(it.values) {
		return nil
	}
	return it.values[it.idx]
}
func (it *memIterator) Error() error { return nil }
func (it *memIterator) Close() error { return nil }
