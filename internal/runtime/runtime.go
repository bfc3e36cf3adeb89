package runtime

import (
	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// Runtime bundles the two rings the ingestor owns exclusively, plus the
// synced marker, and knows how to reload/persist them against a Store
// (spec §4.7: "on startup, both are reloaded from runtime_* keys").
type Runtime struct {
	VSPC     *VSPCRing
	Rollback *RollbackRing
	Synced   bool

	// NextDaaScore is where the ingestor should resume fetching: the
	// configured daa_score_range[0][0] on empty state, or one past the
	// newest cached VSPC entry otherwise.
	NextDaaScore uint64
}

// Load reloads both rings from store, seeding NextDaaScore from
// seedDaaScore (the configured daa_score_range[0][0]) when no prior VSPC
// state exists.
func Load(store kvstore.Store, seedDaaScore uint64) (*Runtime, error) {
	rt := &Runtime{}

	vspcData, err := store.Get([]byte(state.RuntimeVspcLastKey))
	if err != nil && !kvstore.IsNotFound(err) {
		return nil, err
	}
	rt.VSPC, err = LoadVSPCRing(vspcData)
	if err != nil {
		return nil, err
	}
	if last, ok := rt.VSPC.Last(); ok {
		rt.NextDaaScore = last.DaaScore + 1
	} else {
		rt.NextDaaScore = seedDaaScore
	}

	rollbackData, err := store.Get([]byte(state.RuntimeRollbackLastKey))
	if err != nil && !kvstore.IsNotFound(err) {
		return nil, err
	}
	rt.Rollback, err = LoadRollbackRing(rollbackData)
	if err != nil {
		return nil, err
	}

	syncedData, err := store.Get([]byte(state.RuntimeSyncedKey))
	if err != nil && !kvstore.IsNotFound(err) {
		return nil, err
	}
	rt.Synced = len(syncedData) > 0 && syncedData[0] == '1'

	return rt, nil
}

// PersistOps appends the puts needed to write both rings and the synced
// marker into an atomic batch (spec §4.5 step 6d).
func (rt *Runtime) PersistOps(ops []kvstore.Op) ([]kvstore.Op, error) {
	vspcBytes, err := rt.VSPC.Marshal()
	if err != nil {
		return nil, err
	}
	rollbackBytes, err := rt.Rollback.Marshal()
	if err != nil {
		return nil, err
	}
	synced := []byte("0")
	if rt.Synced {
		synced = []byte("1")
	}
	ops = kvstore.PutOp(ops, []byte(state.RuntimeVspcLastKey), vspcBytes)
	ops = kvstore.PutOp(ops, []byte(state.RuntimeRollbackLastKey), rollbackBytes)
	ops = kvstore.PutOp(ops, []byte(state.RuntimeSyncedKey), synced)
	return ops, nil
}
