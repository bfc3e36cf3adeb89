package ops

import (
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// BlacklistHandler implements the "blacklist" opcode: only the token owner
// may insert a (tick, to) blacklist row (spec §4.4).
type BlacklistHandler struct{}

func (BlacklistHandler) Recyclable() bool { return false }

func (BlacklistHandler) FeeLeast(uint64) uint64 { return 600000000 }

func (BlacklistHandler) Validate(p script.Payload, extra map[string]string, vc ValidateContext) (script.Payload, bool) {
	if p["from"] == "" || p["to"] == "" || !state.ValidTickSyntax(p["tick"], false) {
		return p, false
	}
	clearFields(p, "tick", "from", "to")
	return p, true
}

func (BlacklistHandler) PrepareKeys(p script.Payload, slice *state.StateSlice) {
	slice.TouchToken(p["tick"])
	slice.TouchBlacklist(p["tick"], p["to"])
}

func (BlacklistHandler) Execute(p script.Payload, ec ExecContext, slice *state.StateSlice) (Stats, *kerrors.RejectError) {
	var stats Stats
	tick := p["tick"]
	token := slice.GetToken(tick)
	if token == nil {
		return stats, kerrors.Reject(kerrors.KindTickNotFound, tick)
	}
	if token.OwnerAddress != p["from"] {
		return stats, kerrors.Reject(kerrors.KindUnauthorized, "only token owner may manage the blacklist")
	}
	if reject := feeCheck(ec.Fee, BlacklistHandler{}.FeeLeast(ec.DaaScore)); reject != nil {
		return stats, reject
	}

	slice.SetBlacklist(&state.Blacklist{Tick: tick, Addr: p["to"], OpAdd: ec.OpScore})
	stats.Tick(tick, 0)
	return stats, nil
}
