package ops

import (
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// BurnHandler implements the "burn" opcode: debit the sender and decrement
// token.minted, which cannot underflow below zero (spec §4.4).
type BurnHandler struct{}

func (BurnHandler) Recyclable() bool { return true }

func (BurnHandler) FeeLeast(uint64) uint64 { return 600000000 }

func (BurnHandler) Validate(p script.Payload, extra map[string]string, vc ValidateContext) (script.Payload, bool) {
	if p["from"] == "" || !state.ValidTickSyntax(p["tick"], false) {
		return p, false
	}
	if _, err := state.ParseAmount(p["amt"]); err != nil {
		return p, false
	}
	clearFields(p, "tick", "from", "amt")
	return p, true
}

func (BurnHandler) PrepareKeys(p script.Payload, slice *state.StateSlice) {
	slice.TouchToken(p["tick"])
	slice.TouchBalance(p["from"], p["tick"])
}

func (BurnHandler) Execute(p script.Payload, ec ExecContext, slice *state.StateSlice) (Stats, *kerrors.RejectError) {
	var stats Stats
	tick := p["tick"]
	token := slice.GetToken(tick)
	if token == nil {
		return stats, kerrors.Reject(kerrors.KindTickNotFound, tick)
	}
	if reject := feeCheck(ec.Fee, BurnHandler{}.FeeLeast(ec.DaaScore)); reject != nil {
		return stats, reject
	}

	amt, _ := state.ParseAmount(p["amt"])
	balance := slice.GetBalance(p["from"], tick)
	if balance == nil || balance.Available.Cmp(amt) < 0 {
		return stats, kerrors.Reject(kerrors.KindInsufficientBalance, tick)
	}

	newToken := *token
	newToken.Minted = token.Minted.Sub(amt)
	newToken.Burned = token.Burned.Add(amt)
	newToken.OpMod = ec.OpScore
	newToken.MtsMod = ec.MtsAdd
	slice.SetToken(&newToken)

	newBalance := *balance
	newBalance.Available = balance.Available.Sub(amt)
	newBalance.OpMod = ec.OpScore
	tickDelta := 0
	if newBalance.IsEmpty() {
		tickDelta = -1
	}
	slice.SetBalance(&newBalance)

	if tickDelta != 0 {
		stats.Tick(tick, tickDelta)
	}
	stats.Address(p["from"]+"_"+tick, newBalance.Available.Add(newBalance.Locked))
	return stats, nil
}
