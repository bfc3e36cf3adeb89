package ops

import (
	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// MintHandler implements the "mint" opcode: credit the caller with
// min(token.lim, token.max - token.minted) (spec §4.4).
type MintHandler struct{}

func (MintHandler) Recyclable() bool { return true }

func (MintHandler) FeeLeast(uint64) uint64 { return 100000000 }

func (MintHandler) Validate(p script.Payload, extra map[string]string, vc ValidateContext) (script.Payload, bool) {
	if p["from"] == "" || !state.ValidTickSyntax(p["tick"], false) {
		return p, false
	}
	p["to"] = effectiveTo(p)
	clearFields(p, "tick", "to")
	return p, true
}

func (MintHandler) PrepareKeys(p script.Payload, slice *state.StateSlice) {
	slice.TouchToken(p["tick"])
	slice.TouchBalance(p["to"], p["tick"])
}

func (MintHandler) Execute(p script.Payload, ec ExecContext, slice *state.StateSlice) (Stats, *kerrors.RejectError) {
	var stats Stats
	tick := p["tick"]
	token := slice.GetToken(tick)
	if token == nil {
		return stats, kerrors.Reject(kerrors.KindTickNotFound, tick)
	}
	if token.IssueMode() {
		return stats, kerrors.Reject(kerrors.KindModeInvalid, "token is issue-mode")
	}
	if reject := feeCheck(ec.Fee, MintHandler{}.FeeLeast(ec.DaaScore)); reject != nil {
		return stats, reject
	}
	if !validAddress(addr.NetworkFromTestnet(ec.Testnet), p["to"]) {
		return stats, kerrors.Reject(kerrors.KindAddressInvalid, p["to"])
	}

	left := token.MaxSupply.Sub(token.Minted)
	if !token.MaxSupply.IsZero() && left.IsZero() {
		return stats, kerrors.Reject(kerrors.KindMintFinished, tick)
	}
	credit := token.MintLimit
	if !token.MaxSupply.IsZero() {
		credit = credit.Clamp(left)
	}

	newToken := *token
	newToken.Minted = token.Minted.Add(credit)
	newToken.OpMod = ec.OpScore
	newToken.MtsMod = ec.MtsAdd
	slice.SetToken(&newToken)

	balance := slice.GetBalance(p["to"], tick)
	isNew := balance == nil
	if isNew {
		balance = &state.Balance{Address: p["to"], Tick: tick, Decimals: token.Decimals}
	}
	newBalance := *balance
	newBalance.Available = balance.Available.Add(credit)
	newBalance.OpMod = ec.OpScore
	slice.SetBalance(&newBalance)

	if isNew {
		stats.Tick(tick, 1)
	} else {
		stats.Tick(tick, 0)
	}
	stats.Address(p["to"]+"_"+tick, newBalance.Available.Add(newBalance.Locked))
	return stats, nil
}
