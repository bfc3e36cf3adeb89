// Package runtime implements component C7: the two bounded, in-memory
// sequences the ingestor and reorg detector operate against — a recent
// VSPC window and a rollback-record history — each mirrored to the KV
// store under a runtime_* key on every batch.
package runtime

import "encoding/json"

// VSPCRingMax is the maximum number of recent VSPC entries kept (spec §4.7).
const VSPCRingMax = 3600

// VSPCEntry is one recently-seen virtual selected parent chain block
// (spec §3 "VSPC entry").
type VSPCEntry struct {
	DaaScore      uint64   `json:"daa_score"`
	BlockHash     string   `json:"block_hash"`
	AcceptedTxIDs []string `json:"accepted_tx_ids"`
}

// VSPCRing is an oldest-drop bounded sequence of VSPCEntry, ordered by
// daa_score ascending.
type VSPCRing struct {
	entries []VSPCEntry
}

// NewVSPCRing returns an empty ring.
func NewVSPCRing() *VSPCRing { return &VSPCRing{} }

// LoadVSPCRing reconstructs a ring from its persisted runtime_VSPCLAST form.
// Empty data yields an empty ring (spec §4.7: "on empty state the VSPC
// starts at a configured daa_score_range[0][0]" — the caller seeds that).
func LoadVSPCRing(data []byte) (*VSPCRing, error) {
	r := NewVSPCRing()
	if len(data) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		return nil, err
	}
	return r, nil
}

// Marshal serialises the ring for the runtime_VSPCLAST row.
func (r *VSPCRing) Marshal() ([]byte, error) { return json.Marshal(r.entries) }

// Append adds e, dropping the oldest entry once the ring exceeds VSPCRingMax.
func (r *VSPCRing) Append(e VSPCEntry) {
	r.entries = append(r.entries, e)
	if len(r.entries) > VSPCRingMax {
		r.entries = r.entries[len(r.entries)-VSPCRingMax:]
	}
}

// Entries returns the ring contents, oldest first. Callers must not mutate
// the returned slice.
func (r *VSPCRing) Entries() []VSPCEntry { return r.entries }

// Len reports the number of cached entries.
func (r *VSPCRing) Len() int { return len(r.entries) }

// Last returns the newest entry, if any.
func (r *VSPCRing) Last() (VSPCEntry, bool) {
	if len(r.entries) == 0 {
		return VSPCEntry{}, false
	}
	return r.entries[len(r.entries)-1], true
}

// At returns the entry with the given daa_score, if cached.
func (r *VSPCRing) At(daaScore uint64) (VSPCEntry, bool) {
	for _, e := range r.entries {
		if e.DaaScore == daaScore {
			return e, true
		}
	}
	return VSPCEntry{}, false
}

// TruncateFrom drops every cached entry with daa_score >= daaScore, used
// when a rollback rewinds the VSPC ring (spec §4.6 step 4).
func (r *VSPCRing) TruncateFrom(daaScore uint64) {
	out := make([]VSPCEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.DaaScore < daaScore {
			out = append(out, e)
		}
	}
	r.entries = out
}
