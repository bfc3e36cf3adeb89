// Package pipeline implements component C5: the per-batch execution
// sequence of spec §4.5 — key collection, slice hydrate, state_before
// snapshot, ordered execution, checkpoint accumulation, and atomic commit.
package pipeline

import (
	"encoding/json"

	"github.com/AvatoLabs/kasplex-indexer/internal/script"
)

// OpRecord is the full persisted operation record stored at opdata_<tx_id>
// (spec §3 key layout).
type OpRecord struct {
	TxID        string            `json:"tx_id"`
	OpScore     uint64            `json:"op_score"`
	DaaScore    uint64            `json:"daa_score"`
	MtsAdd      uint64            `json:"mts_add"`
	Op          string            `json:"op"`
	Tick        string            `json:"tick"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	Fee         uint64            `json:"fee"`
	ScriptJSON  string            `json:"script_json"`
	OpAccept    int8              `json:"op_accept"`
	OpError     string            `json:"op_error,omitempty"`
	TickAffc    []string          `json:"tick_affc,omitempty"`
	AddressAffc []string          `json:"address_affc,omitempty"`
}

// OpListEntry is the compact index row stored at oplist_<range>_<op_score>
// (spec §3: "index record (tx_id, state JSON, script JSON, affected
// sets)"). StateJSON snapshots exactly the keys this operation declared
// through PrepareKeys, as they stood in the slice after Execute ran.
type OpListEntry struct {
	TxID        string   `json:"tx_id"`
	OpScore     uint64   `json:"op_score"`
	ScriptJSON  string   `json:"script_json"`
	StateJSON   string   `json:"state_json"`
	TickAffc    []string `json:"tick_affc,omitempty"`
	AddressAffc []string `json:"address_affc,omitempty"`
}

func marshalPayload(op string, p script.Payload) string {
	b, err := script.EncodeJSON(op, p)
	if err != nil {
		// EncodeJSON only fails on a field whose value cannot be
		// represented; the payload is already validated text by this
		// point, so fall back to a plain marshal rather than drop data.
		b, _ = json.Marshal(p)
	}
	return string(b)
}
