package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/testutil"
)

func TestMemStoreGetPutDelete(t *testing.T) {
	s := NewMemStore()
	_, err := s.Get([]byte("missing"))
	require.ErrorIs(t, err, kerrors.ErrNotFound)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	require.Equal(t, []byte("1"), v)

	require.NoError(t, s.Delete([]byte("a")))
	_, err = s.Get([]byte("a"))
	require.ErrorIs(t, err, kerrors.ErrNotFound)
}

func TestMemStoreScanPrefixOrdered(t *testing.T) {
	s := NewMemStore()
	for _, k := range []string{"stbalance_C", "stbalance_A", "stbalance_B", "sttoken_X"} {
		require.NoError(t, s.Put([]byte(k), []byte(k)))
	}
	it := s.ScanPrefix([]byte("stbalance_"))
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	require.NoError(t, it.Error())
	require.Equal(t, []string{"stbalance_A", "stbalance_B", "stbalance_C"}, got)
}

func TestMemStoreApplyBatchAtomicShape(t *testing.T) {
	s := NewMemStore()
	require.NoError(t, s.Put([]byte("k1"), []byte("old")))
	ops := []Op{
		{Kind: OpPut, Key: []byte("k1"), Value: []byte("new")},
		{Kind: OpPut, Key: []byte("k2"), Value: []byte("v2")},
		{Kind: OpDelete, Key: []byte("k3")},
	}
	require.NoError(t, s.ApplyBatch(ops))
	v, err := s.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
	v, err = s.Get([]byte("k2"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)
}

func TestBoltStoreGetPutDeleteAndScan(t *testing.T) {
	box, err := testutil.NewSandbox()
	require.NoError(t, err)
	defer box.Cleanup()

	store, err := Open(filepath.Join(box.Root, "kv.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get([]byte("missing"))
	require.ErrorIs(t, err, kerrors.ErrNotFound)

	require.NoError(t, store.Put([]byte("stbalance_A_TICK"), []byte("1")))
	require.NoError(t, store.Put([]byte("stbalance_B_TICK"), []byte("2")))
	require.NoError(t, store.Put([]byte("sttoken_TICK"), []byte("3")))

	it := store.ScanPrefix([]byte("stbalance_"))
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, string(it.Key()))
	}
	require.Equal(t, []string{"stbalance_A_TICK", "stbalance_B_TICK"}, got)

	require.NoError(t, store.ApplyBatch([]Op{
		{Kind: OpDelete, Key: []byte("stbalance_A_TICK")},
		{Kind: OpPut, Key: []byte("stbalance_C_TICK"), Value: []byte("4")},
	}))
	_, err = store.Get([]byte("stbalance_A_TICK"))
	require.ErrorIs(t, err, kerrors.ErrNotFound)
	v, err := store.Get([]byte("stbalance_C_TICK"))
	require.NoError(t, err)
	require.Equal(t, []byte("4"), v)
}
