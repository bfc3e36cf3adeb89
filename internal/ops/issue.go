package ops

import (
	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// IssueHandler implements the "issue" opcode: a post-deploy mint into an
// issue-mode token, restricted to the token's owner (spec §4.4).
type IssueHandler struct{}

func (IssueHandler) Recyclable() bool { return false }

func (IssueHandler) FeeLeast(uint64) uint64 { return 400000000 }

func (IssueHandler) Validate(p script.Payload, extra map[string]string, vc ValidateContext) (script.Payload, bool) {
	if p["from"] == "" || !state.ValidTickSyntax(p["tick"], true) {
		return p, false
	}
	if _, err := state.ParseAmount(p["amt"]); err != nil {
		return p, false
	}
	p["to"] = effectiveTo(p)
	clearFields(p, "tick", "to", "from", "amt")
	return p, true
}

func (IssueHandler) PrepareKeys(p script.Payload, slice *state.StateSlice) {
	slice.TouchToken(p["tick"])
	slice.TouchBalance(p["to"], p["tick"])
}

func (IssueHandler) Execute(p script.Payload, ec ExecContext, slice *state.StateSlice) (Stats, *kerrors.RejectError) {
	var stats Stats
	tick := p["tick"]
	token := slice.GetToken(tick)
	if token == nil {
		return stats, kerrors.Reject(kerrors.KindTickNotFound, tick)
	}
	if token.OwnerAddress != p["from"] {
		return stats, kerrors.Reject(kerrors.KindUnauthorized, "only token owner may issue")
	}
	if reject := feeCheck(ec.Fee, IssueHandler{}.FeeLeast(ec.DaaScore)); reject != nil {
		return stats, reject
	}
	if !validAddress(addr.NetworkFromTestnet(ec.Testnet), p["to"]) {
		return stats, kerrors.Reject(kerrors.KindAddressInvalid, p["to"])
	}

	amt, _ := state.ParseAmount(p["amt"])
	if !token.MaxSupply.IsZero() && token.Minted.Add(amt).Cmp(token.MaxSupply) > 0 {
		return stats, kerrors.Reject(kerrors.KindExceedsMaxSupply, tick)
	}

	newToken := *token
	newToken.Minted = token.Minted.Add(amt)
	newToken.OpMod = ec.OpScore
	newToken.MtsMod = ec.MtsAdd
	slice.SetToken(&newToken)

	balance := slice.GetBalance(p["to"], tick)
	isNew := balance == nil
	if balance == nil {
		balance = &state.Balance{Address: p["to"], Tick: tick, Decimals: token.Decimals}
	}
	newBalance := *balance
	newBalance.Available = balance.Available.Add(amt)
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
