package ops

import (
	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// ChownHandler implements the "chown" opcode: only the current owner may
// reassign a token's owner_address (spec §4.4).
type ChownHandler struct{}

func (ChownHandler) Recyclable() bool { return false }

func (ChownHandler) FeeLeast(uint64) uint64 { return 800000000 }

func (ChownHandler) Validate(p script.Payload, extra map[string]string, vc ValidateContext) (script.Payload, bool) {
	if p["from"] == "" || p["to"] == "" || !state.ValidTickSyntax(p["tick"], true) {
		return p, false
	}
	clearFields(p, "tick", "from", "to")
	return p, true
}

func (ChownHandler) PrepareKeys(p script.Payload, slice *state.StateSlice) {
	slice.TouchToken(p["tick"])
}

func (ChownHandler) Execute(p script.Payload, ec ExecContext, slice *state.StateSlice) (Stats, *kerrors.RejectError) {
	var stats Stats
	tick := p["tick"]
	token := slice.GetToken(tick)
	if token == nil {
		return stats, kerrors.Reject(kerrors.KindTickNotFound, tick)
	}
	if token.OwnerAddress != p["from"] {
		return stats, kerrors.Reject(kerrors.KindUnauthorized, "only token owner may transfer ownership")
	}
	if reject := feeCheck(ec.Fee, ChownHandler{}.FeeLeast(ec.DaaScore)); reject != nil {
		return stats, reject
	}
	if !validAddress(addr.NetworkFromTestnet(ec.Testnet), p["to"]) {
		return stats, kerrors.Reject(kerrors.KindAddressInvalid, p["to"])
	}

	newToken := *token
	newToken.OwnerAddress = p["to"]
	newToken.OpMod = ec.OpScore
	newToken.MtsMod = ec.MtsAdd
	slice.SetToken(&newToken)

	stats.Tick(tick, 0)
	return stats, nil
}
