package ops

import (
	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// transferLike implements the shared validate/execute logic of "transfer"
// and "send", which are both recyclable and differ only in their minimum
// fee.
type transferLike struct {
	recyclable bool
	fee        uint64
}

// TransferHandler is the recyclable "transfer" opcode, permitted on
// non-first transaction inputs.
var TransferHandler = transferLike{recyclable: true, fee: 0}

// SendHandler is the recyclable "send" opcode, permitted on non-first
// transaction inputs.
var SendHandler = transferLike{recyclable: true, fee: 200000000}

func (h transferLike) Recyclable() bool { return h.recyclable }

func (h transferLike) FeeLeast(uint64) uint64 { return h.fee }

func (h transferLike) Validate(p script.Payload, extra map[string]string, vc ValidateContext) (script.Payload, bool) {
	p["tick"] = resolveTick(p)
	if p["from"] == "" || p["to"] == "" {
		return p, false
	}
	if !state.ValidTickSyntax(p["tick"], true) {
		return p, false
	}
	if _, err := state.ParseAmount(p["amt"]); err != nil {
		return p, false
	}
	clearFields(p, "tick", "to", "from", "amt")
	return p, true
}

func (h transferLike) PrepareKeys(p script.Payload, slice *state.StateSlice) {
	tick := p["tick"]
	slice.TouchToken(tick)
	slice.TouchBalance(p["from"], tick)
	slice.TouchBalance(p["to"], tick)
	slice.TouchBlacklist(tick, p["from"])
}

func (h transferLike) Execute(p script.Payload, ec ExecContext, slice *state.StateSlice) (Stats, *kerrors.RejectError) {
	var stats Stats
	tick := p["tick"]

	if slice.GetToken(tick) == nil {
		return stats, kerrors.Reject(kerrors.KindTickNotFound, tick)
	}
	if slice.GetBlacklist(tick, p["from"]) != nil {
		return stats, kerrors.Reject(kerrors.KindAddressBlacklisted, p["from"])
	}
	if reject := feeCheck(ec.Fee, h.FeeLeast(ec.DaaScore)); reject != nil {
		return stats, reject
	}
	if p["from"] == p["to"] {
		return stats, kerrors.Reject(kerrors.KindAddressInvalid, "from and to must differ")
	}
	if !validAddress(addr.NetworkFromTestnet(ec.Testnet), p["to"]) {
		return stats, kerrors.Reject(kerrors.KindAddressInvalid, p["to"])
	}

	amt, _ := state.ParseAmount(p["amt"])
	from := slice.GetBalance(p["from"], tick)
	if from == nil || from.Available.Cmp(amt) < 0 {
		return stats, kerrors.Reject(kerrors.KindInsufficientBalance, tick)
	}

	newFrom := *from
	newFrom.Available = from.Available.Sub(amt)
	newFrom.OpMod = ec.OpScore
	tickDelta := 0
	if newFrom.IsEmpty() {
		tickDelta = -1
	}
	slice.SetBalance(&newFrom)

	to := slice.GetBalance(p["to"], tick)
	if to == nil {
		to = &state.Balance{Address: p["to"], Tick: tick, Decimals: from.Decimals}
	}
	newTo := *to
	newTo.Available = to.Available.Add(amt)
	newTo.OpMod = ec.OpScore
	slice.SetBalance(&newTo)

	// Only the sender side's row deletion is reflected in tick_affc; the
	// recipient row's creation is not (spec §8's S3 scenario).
	if tickDelta != 0 {
		stats.Tick(tick, tickDelta)
	}
	stats.Address(p["from"]+"_"+tick, newFrom.Available.Add(newFrom.Locked))
	stats.Address(p["to"]+"_"+tick, newTo.Available.Add(newTo.Locked))
	return stats, nil
}
