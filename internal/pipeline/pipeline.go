package pipeline

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/ops"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// CandidateOp is one decoded protocol operation extracted from a
// transaction's signature script, queued for the batch pipeline (spec
// §4.5). IntraIndex is the operation's position within its accepting
// block, used to compute OpScore.
type CandidateOp struct {
	TxID       string
	DaaScore   uint64
	IntraIndex uint64
	MtsAdd     uint64
	Fee        uint64
	Testnet    bool
	Network    addr.Network
	Sender     string
	Payload    script.Payload
	Extra      map[string]string
}

// OpScore is the indexer-assigned monotone operation id (glossary: OpScore).
func (c CandidateOp) OpScore() uint64 { return c.DaaScore*10000 + c.IntraIndex }

// BatchResult is everything one RunBatch call produces: the final slice
// (diff-sized, ready to become the state_after half of a rollback record),
// the persisted per-operation records, and the checkpoint accumulator.
type BatchResult struct {
	Slice           *state.StateSlice
	StateBefore     *state.StateSlice
	OpRecords       []OpRecord
	OpListEntries   []OpListEntry
	OpScoreList     []uint64
	TxIDList        []string
	CheckpointAfter string
}

type preparedOp struct {
	cand    CandidateOp
	handler ops.Handler
	payload script.Payload
	ownKeys *state.StateSlice
}

// RunBatch executes steps 1-5 of spec §4.5 for one VSPC window's worth of
// candidate operations, in order; the commit rows are built afterwards by
// BuildCommitOps. checkpointBefore is the prior batch's
// CheckpointAfter (hex text), or empty for the first batch ever processed.
func RunBatch(store kvstore.Store, candidates []CandidateOp, checkpointBefore string) (*BatchResult, error) {
	slice := state.NewStateSlice()

	var prepared []preparedOp
	for _, c := range candidates {
		handler, ok := ops.Lookup(c.Payload["op"])
		if !ok {
			// Not a registered opcode: structurally a protocol message but
			// not one this indexer implements. Treated the same as a
			// decode failure — silently skipped, never persisted.
			continue
		}
		// "from" is never part of the on-chain JSON (spec §6's field
		// orders omit it); it is the redeem script's decoded sender.
		if c.Payload["from"] == "" {
			c.Payload["from"] = c.Sender
		}
		vc := ops.ValidateContext{TxID: c.TxID, DaaScore: c.DaaScore, Testnet: c.Testnet, Network: c.Network}
		payload, ok := handler.Validate(c.Payload, c.Extra, vc)
		if !ok {
			continue
		}

		own := state.NewStateSlice()
		handler.PrepareKeys(payload, own)
		handler.PrepareKeys(payload, slice)
		prepared = append(prepared, preparedOp{cand: c, handler: handler, payload: payload, ownKeys: own})
	}

	if err := hydrate(store, slice); err != nil {
		return nil, err
	}
	stateBefore := slice.Clone()

	result := &BatchResult{StateBefore: stateBefore}
	var recordBytes []byte

	for _, p := range prepared {
		opScore := p.cand.OpScore()
		ec := ops.ExecContext{
			OpScore: opScore, DaaScore: p.cand.DaaScore, MtsAdd: p.cand.MtsAdd,
			TxID: p.cand.TxID, Fee: p.cand.Fee, Testnet: p.cand.Testnet,
		}
		stats, reject := p.handler.Execute(p.payload, ec, slice)

		rec := OpRecord{
			TxID: p.cand.TxID, OpScore: opScore, DaaScore: p.cand.DaaScore, MtsAdd: p.cand.MtsAdd,
			Op: p.payload["op"], Tick: p.payload["tick"], From: p.payload["from"], To: p.payload["to"],
			Fee: p.cand.Fee, ScriptJSON: marshalPayload(p.payload["op"], p.payload),
		}
		if reject != nil {
			rec.OpAccept = -1
			rec.OpError = reject.Error()
		} else {
			rec.OpAccept = 1
			rec.TickAffc = stats.TickAffc
			rec.AddressAffc = stats.AddressAffc
		}

		snapshotOwnKeys(p.ownKeys, slice)
		stateJSON, err := json.Marshal(p.ownKeys)
		if err != nil {
			return nil, fmt.Errorf("pipeline: marshal state snapshot for %s: %w", p.cand.TxID, err)
		}

		result.OpRecords = append(result.OpRecords, rec)
		result.OpListEntries = append(result.OpListEntries, OpListEntry{
			TxID: p.cand.TxID, OpScore: opScore, ScriptJSON: rec.ScriptJSON, StateJSON: string(stateJSON),
			TickAffc: rec.TickAffc, AddressAffc: rec.AddressAffc,
		})
		result.OpScoreList = append(result.OpScoreList, opScore)
		result.TxIDList = append(result.TxIDList, p.cand.TxID)

		recBytes, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("pipeline: marshal op record for %s: %w", p.cand.TxID, err)
		}
		recordBytes = append(recordBytes, recBytes...)
	}

	sum := blake2b.Sum256(append([]byte(checkpointBefore), recordBytes...))
	result.CheckpointAfter = hex.EncodeToString(sum[:])
	result.Slice = slice
	return result, nil
}

// snapshotOwnKeys copies the post-execution values of the keys own
// declared (via PrepareKeys) out of the shared slice, for the op's
// individual oplist index row.
func snapshotOwnKeys(own, slice *state.StateSlice) {
	for k := range own.Tokens {
		own.Tokens[k] = slice.Tokens[k]
	}
	for k := range own.Balances {
		own.Balances[k] = slice.Balances[k]
	}
	for k := range own.Markets {
		own.Markets[k] = slice.Markets[k]
	}
	for k := range own.Blacklist {
		own.Blacklist[k] = slice.Blacklist[k]
	}
}

// hydrate issues point reads for every key in slice whose value is still
// nil, replacing it with the loaded value (or leaving nil if absent);
// spec §4.5 step 2.
func hydrate(store kvstore.Store, slice *state.StateSlice) error {
	if err := hydrateMap(store, slice.Tokens); err != nil {
		return err
	}
	if err := hydrateMap(store, slice.Balances); err != nil {
		return err
	}
	if err := hydrateMap(store, slice.Markets); err != nil {
		return err
	}
	if err := hydrateMap(store, slice.Blacklist); err != nil {
		return err
	}
	return nil
}

func hydrateMap[T any](store kvstore.Store, m map[string]*T) error {
	for k, v := range m {
		if v != nil {
			continue
		}
		data, err := store.Get([]byte(k))
		if err != nil {
			if kvstore.IsNotFound(err) {
				continue
			}
			return fmt.Errorf("%w: get %s: %v", kerrors.ErrKvIO, k, err)
		}
		var val T
		if err := json.Unmarshal(data, &val); err != nil {
			return fmt.Errorf("%w: decode %s: %v", kerrors.ErrKvCorrupt, k, err)
		}
		m[k] = &val
	}
	return nil
}

// BuildCommitOps extends ops with the full set of writes step 6 of
// spec §4.5 describes: the slice's rows (present keys as puts, nil-valued
// keys as deletes), one opdata_<tx_id> row per operation, and one
// oplist_<range>_<op_score> index row per operation. Runtime ring rows are
// appended separately by the caller via runtime.Runtime.PersistOps, since
// the rings are owned by the ingestor, not the pipeline.
func BuildCommitOps(batchOps []kvstore.Op, result *BatchResult) ([]kvstore.Op, error) {
	var err error
	if batchOps, err = appendEntityOps(batchOps, result.Slice.Tokens); err != nil {
		return nil, err
	}
	if batchOps, err = appendEntityOps(batchOps, result.Slice.Balances); err != nil {
		return nil, err
	}
	if batchOps, err = appendEntityOps(batchOps, result.Slice.Markets); err != nil {
		return nil, err
	}
	if batchOps, err = appendEntityOps(batchOps, result.Slice.Blacklist); err != nil {
		return nil, err
	}

	for _, rec := range result.OpRecords {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		batchOps = kvstore.PutOp(batchOps, []byte(state.OpDataKey(rec.TxID)), data)
	}
	for _, entry := range result.OpListEntries {
		data, err := json.Marshal(entry)
		if err != nil {
			return nil, err
		}
		batchOps = kvstore.PutOp(batchOps, []byte(state.OpListKey(entry.OpScore)), data)
	}
	return batchOps, nil
}

func appendEntityOps[T any](batchOps []kvstore.Op, m map[string]*T) ([]kvstore.Op, error) {
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
