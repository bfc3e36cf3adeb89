package runtime

import (
	"encoding/json"

	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// RollbackRingGap is the daa_score distance between the oldest and newest
// rollback record beyond which the oldest is dropped (spec §4.7).
const RollbackRingGap = 3600

// RollbackRecord is the before/after state diff plus operation pointers
// needed to undo one committed batch (spec §3 "Rollback record").
type RollbackRecord struct {
	StateBefore      *state.StateSlice `json:"state_before"`
	StateAfter       *state.StateSlice `json:"state_after"`
	OpScoreList      []uint64          `json:"op_score_list"`
	TxIDList         []string          `json:"tx_id_list"`
	DaaScoreStart    uint64            `json:"daa_score_start"`
	DaaScoreEnd      uint64            `json:"daa_score_end"`
	CheckpointBefore string            `json:"checkpoint_before"`
	CheckpointAfter  string            `json:"checkpoint_after"`
	OpScoreLast      uint64            `json:"op_score_last"`
}

// RollbackRing is the in-memory history of rollback records, oldest first,
// truncated by daa_score span rather than by count (spec §4.7).
type RollbackRing struct {
	records []*RollbackRecord
}

// NewRollbackRing returns an empty ring.
func NewRollbackRing() *RollbackRing { return &RollbackRing{} }

// LoadRollbackRing reconstructs a ring from its persisted runtime_ROLLBACKLAST form.
func LoadRollbackRing(data []byte) (*RollbackRing, error) {
	r := NewRollbackRing()
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.records); err != nil {
		return nil, err
	}
	return r, nil
}

// Marshal serialises the ring for the runtime_ROLLBACKLAST row.
func (r *RollbackRing) Marshal() ([]byte, error) { return json.Marshal(r.records) }

// Append adds rec, then truncates from the oldest end while the span
// between the oldest record's daa_score_start and the newest record's
// daa_score_end is at least RollbackRingGap.
func (r *RollbackRing) Append(rec *RollbackRecord) {
	r.records = append(r.records, rec)
	r.truncate()
}

func (r *RollbackRing) truncate() {
	for len(r.records) > 1 {
		oldest, newest := r.records[0], r.records[len(r.records)-1]
		if newest.DaaScoreEnd-oldest.DaaScoreStart >= RollbackRingGap {
			r.records = r.records[1:]
			continue
		}
		break
	}
}

// Records returns the ring contents, oldest first. Callers must not mutate
// the returned slice.
func (r *RollbackRing) Records() []*RollbackRecord { return r.records }

// Len reports the number of cached records.
func (r *RollbackRing) Len() int { return len(r.records) }

// Newest returns the most recently appended record, if any.
func (r *RollbackRing) Newest() (*RollbackRecord, bool) {
	if len(r.records) == 0 {
		return nil, false
	}
	return r.records[len(r.records)-1], true
}

// PopNewest removes and returns the most recently appended record, used by
// the reorg engine to rewind one batch at a time (spec §4.6 step 1).
func (r *RollbackRing) PopNewest() (*RollbackRecord, bool) {
	if len(r.records) == 0 {
		return nil, false
	}
	rec := r.records[len(r.records)-1]
	r.records = r.records[:len(r.records)-1]
	return rec, true
}
