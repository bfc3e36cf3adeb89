package ops

import (
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// allFields lists every field any opcode's JSON payload may carry (spec §6).
var allFields = []string{
	"p", "op", "tick", "name", "max", "dec", "desc", "lim", "pre", "to",
	"from", "amt", "ca", "price", "list", "blacklist", "utxo",
}

// clearFields blanks every payload field not named in keep, normalising the
// stored record (spec §4.4: "unused fields are cleared to empty-string
// sentinels"). p["p"] and p["op"] are always preserved.
func clearFields(p script.Payload, keep ...string) {
	kept := make(map[string]bool, len(keep)+2)
	kept["p"] = true
	kept["op"] = true
	for _, k := range keep {
		kept[k] = true
	}
	for _, f := range allFields {
		if !kept[f] {
			p[f] = ""
		}
	}
}

// effectiveTo returns p["to"], defaulting to p["from"] when absent and the
// opcode permits self-targeting (spec §4.4's "to defaults to from" clause).
func effectiveTo(p script.Payload) string {
	if p["to"] != "" {
		return p["to"]
	}
	return p["from"]
}

// resolveTick applies the transfer-by-contract alias: if ca is a syntactically
// valid tx id, tick becomes ca (spec §4.4's transfer contract).
func resolveTick(p script.Payload) string {
	if ca := p["ca"]; ca != "" && state.IsTxIDAlias(ca) {
		return ca
	}
	return p["tick"]
}
