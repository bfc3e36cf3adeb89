package ops

import (
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// ListHandler implements the "list" opcode: move amt from available to
// locked and create a marketplace listing (spec §4.4).
type ListHandler struct{}

func (ListHandler) Recyclable() bool { return false }

func (ListHandler) FeeLeast(uint64) uint64 { return 100000000 }

func (ListHandler) Validate(p script.Payload, extra map[string]string, vc ValidateContext) (script.Payload, bool) {
	if p["from"] == "" || !state.ValidTickSyntax(p["tick"], false) {
		return p, false
	}
	if _, err := state.ParseAmount(p["amt"]); err != nil {
		return p, false
	}
	if _, err := state.ParseAmountAllowZero(p["price"]); err != nil {
		return p, false
	}
	// There is no "utxo" field on the wire (spec §6); the listing's utxo
	// id is the transaction that creates it, not anything the payload
	// carries, so it's bound here from the transaction id while it's
	// still in scope for PrepareKeys/Execute to read back off p.
	p["utxo"] = vc.TxID
	clearFields(p, "tick", "from", "amt", "price", "utxo")
	return p, true
}

func (ListHandler) PrepareKeys(p script.Payload, slice *state.StateSlice) {
	slice.TouchToken(p["tick"])
	slice.TouchBalance(p["from"], p["tick"])
	slice.TouchMarket(p["tick"], p["from"], p["utxo"])
}

func (ListHandler) Execute(p script.Payload, ec ExecContext, slice *state.StateSlice) (Stats, *kerrors.RejectError) {
	var stats Stats
	tick := p["tick"]
	if slice.GetToken(tick) == nil {
		return stats, kerrors.Reject(kerrors.KindTickNotFound, tick)
	}
	price, _ := state.ParseAmountAllowZero(p["price"])
	if price.Sign() <= 0 {
		return stats, kerrors.Reject(kerrors.KindInvalidPrice, p["price"])
	}
	if reject := feeCheck(ec.Fee, ListHandler{}.FeeLeast(ec.DaaScore)); reject != nil {
		return stats, reject
	}

	amt, _ := state.ParseAmount(p["amt"])
	balance := slice.GetBalance(p["from"], tick)
	if balance == nil || balance.Available.Cmp(amt) < 0 {
		return stats, kerrors.Reject(kerrors.KindInsufficientBalance, tick)
	}

	newBalance := *balance
	newBalance.Available = balance.Available.Sub(amt)
	newBalance.Locked = balance.Locked.Add(amt)
	newBalance.OpMod = ec.OpScore
	slice.SetBalance(&newBalance)

	slice.SetMarket(&state.Market{
		Tick:          tick,
		SellerAddr:    p["from"],
		UtxoTxID:      p["utxo"],
		OfferedAmount: amt,
		TakeAmount:    state.ZeroAmount,
		OpAdd:         ec.OpScore,
	})

	stats.Tick(tick, 0)
	stats.Address(p["from"]+"_"+tick, newBalance.Available.Add(newBalance.Locked))
	return stats, nil
}
