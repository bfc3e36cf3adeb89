// Package reorg implements component C6: detecting a divergence between
// the cached VSPC ring and a freshly fetched window, and rewinding
// committed batches one rollback record at a time until the divergence is
// gone (spec §4.6).
package reorg

import (
	"encoding/json"
	"fmt"

	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/runtime"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// DetectMismatch compares a freshly fetched VSPC window against the
// cached ring and returns the daa_score of the first block whose hash
// differs, plus whether any mismatch was found at all (spec §4.6
// "Detection").
func DetectMismatch(cached *runtime.VSPCRing, fresh []runtime.VSPCEntry) (rollbackDaaScore uint64, found bool) {
	for _, f := range fresh {
		cachedEntry, ok := cached.At(f.DaaScore)
		if !ok {
			continue
		}
		if cachedEntry.BlockHash != f.BlockHash {
			return f.DaaScore, true
		}
	}
	return 0, false
}

// Step performs a single rollback iteration (spec §4.6 "Rollback step"):
// if the newest rollback record covers rollbackDaaScore, rewind it and
// return the ops to commit atomically; otherwise just truncate the VSPC
// ring, since there is nothing state-bearing to undo yet.
func Step(store kvstore.Store, rt *runtime.Runtime, rollbackDaaScore uint64) ([]kvstore.Op, error) {
	newest, ok := rt.Rollback.Newest()
	if !ok || newest.DaaScoreEnd < rollbackDaaScore {
		rt.VSPC.TruncateFrom(rollbackDaaScore)
		return rt.PersistOps(nil)
	}

	rec, _ := rt.Rollback.PopNewest()
	batchOps, err := rewindOps(nil, rec)
	if err != nil {
		return nil, err
	}

	rt.VSPC.TruncateFrom(rec.DaaScoreStart)
	batchOps, err = rt.PersistOps(batchOps)
	if err != nil {
		return nil, err
	}
	return batchOps, nil
}

// rewindOps builds the writes that restore rec.StateBefore into the
// canonical tables and deletes the opdata_*/oplist_* rows rec wrote
// (spec §4.6 step 2).
func rewindOps(batchOps []kvstore.Op, rec *runtime.RollbackRecord) ([]kvstore.Op, error) {
	var err error
	if batchOps, err = restoreEntityOps(batchOps, rec.StateBefore.Tokens); err != nil {
		return nil, err
	}
	if batchOps, err = restoreEntityOps(batchOps, rec.StateBefore.Balances); err != nil {
		return nil, err
	}
	if batchOps, err = restoreEntityOps(batchOps, rec.StateBefore.Markets); err != nil {
		return nil, err
	}
	if batchOps, err = restoreEntityOps(batchOps, rec.StateBefore.Blacklist); err != nil {
		return nil, err
	}

	for _, txID := range rec.TxIDList {
		batchOps = kvstore.DeleteOp(batchOps, []byte(state.OpDataKey(txID)))
	}
	for _, opScore := range rec.OpScoreList {
		batchOps = kvstore.DeleteOp(batchOps, []byte(state.OpListKey(opScore)))
	}
	return batchOps, nil
}

func restoreEntityOps[T any](batchOps []kvstore.Op, m map[string]*T) ([]kvstore.Op, error) {
	for k, v := range m {
		if v == nil {
			batchOps = kvstore.DeleteOp(batchOps, []byte(k))
			continue
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		batchOps = kvstore.PutOp(batchOps, []byte(k), data)
	}
	return batchOps, nil
}

// ValidatePreflight checks a rewind candidate before an operator-initiated
// rewind: the target block must be cached, and both of the record's state
// slices must be internally consistent (no token minted beyond a non-zero
// max_supply, no balance with a negative component). Market listings are
// not checked. It performs no writes.
func ValidatePreflight(cached *runtime.VSPCRing, rec *runtime.RollbackRecord) error {
	if _, ok := cached.At(rec.DaaScoreStart); !ok {
		return fmt.Errorf("%w: target block at daa_score %d not in VSPC ring", kerrors.ErrRollbackInconsistent, rec.DaaScoreStart)
	}
	if err := checkSliceInvariants(rec.StateBefore); err != nil {
		return err
	}
	if err := checkSliceInvariants(rec.StateAfter); err != nil {
		return err
	}
	return nil
}

func checkSliceInvariants(slice *state.StateSlice) error {
	for tick, tok := range slice.Tokens {
		if tok == nil {
			continue
		}
		if !tok.MaxSupply.IsZero() && tok.Minted.Cmp(tok.MaxSupply) > 0 {
			return fmt.Errorf("%w: token %s minted exceeds max_supply", kerrors.ErrRollbackInconsistent, tick)
		}
	}
	for key, bal := range slice.Balances {
		if bal == nil {
			continue
		}
		if bal.Available.Sign() < 0 || bal.Locked.Sign() < 0 {
			return fmt.Errorf("%w: balance %s has a negative component", kerrors.ErrRollbackInconsistent, key)
		}
	}
	return nil
}
