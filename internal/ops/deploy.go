package ops

import (
	"strconv"

	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/config"
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// DeployHandler implements the "deploy" opcode (spec §4.4), in both
// mint-mode (fixed max supply, per-mint cap) and issue-mode (tick assigned
// from the deploying tx id, unbounded supply allowed).
type DeployHandler struct{}

func (DeployHandler) Recyclable() bool { return false }

func (DeployHandler) FeeLeast(uint64) uint64 { return 100000000000 }

// issueModeGate is the single predicate design note (c) asks for: testnet
// OR daa_score past the configured issue-mode threshold, re-derived from
// configuration rather than a literal constant.
func issueModeGate(daaScore uint64, testnet bool) bool {
	threshold := config.AppConfig.Startup.IssueModeScore
	if threshold == 0 {
		threshold = 110165000
	}
	return testnet || daaScore >= threshold
}

func (DeployHandler) Validate(p script.Payload, extra map[string]string, vc ValidateContext) (script.Payload, bool) {
	if p["from"] == "" {
		return p, false
	}
	issueMode := issueModeGate(vc.DaaScore, vc.Testnet) && p["mod"] == state.ModeIssue

	if issueMode {
		if !state.ValidTickSyntax(p["name"], false) {
			return p, false
		}
		if !validDecimals(p) {
			return p, false
		}
		if p["max"] != "" && p["max"] != "0" {
			if _, err := state.ParseAmountAllowZero(p["max"]); err != nil {
				return p, false
			}
		} else {
			p["max"] = "0"
		}
		p["tick"] = vc.TxID
		p["mod"] = state.ModeIssue
	} else {
		if !state.ValidTickSyntax(p["tick"], false) {
			return p, false
		}
		if _, err := state.ParseAmount(p["max"]); err != nil {
			return p, false
		}
		if _, err := state.ParseAmount(p["lim"]); err != nil {
			return p, false
		}
		if !validDecimals(p) {
			return p, false
		}
		p["mod"] = state.ModeMint
		p["name"] = ""
	}

	if _, err := state.ParseAmountAllowZero(p["pre"]); err != nil {
		p["pre"] = "0"
	}
	p["to"] = effectiveTo(p)

	clearFields(p, "tick", "name", "max", "dec", "desc", "lim", "pre", "to", "from", "mod")
	return p, true
}

func validDecimals(p script.Payload) bool {
	if p["dec"] == "" {
		p["dec"] = "8"
		return true
	}
	v, err := strconv.Atoi(p["dec"])
	if err != nil || v < 0 || v > 18 {
		return false
	}
	return true
}

func (DeployHandler) PrepareKeys(p script.Payload, slice *state.StateSlice) {
	tick := p["tick"]
	if tick == "" {
		return
	}
	slice.TouchToken(tick)
	if p["pre"] != "0" && p["to"] != "" {
		slice.TouchBalance(p["to"], tick)
	}
}

func (DeployHandler) Execute(p script.Payload, ec ExecContext, slice *state.StateSlice) (Stats, *kerrors.RejectError) {
	var stats Stats
	tick := p["tick"]

	if slice.GetToken(tick) != nil {
		return stats, kerrors.Reject(kerrors.KindTickExisted, tick)
	}
	if state.IsIgnoredTick(tick) {
		return stats, kerrors.Reject(kerrors.KindTickIgnored, tick)
	}
	if err := state.CheckTickReserved(tick, p["from"]); err != nil {
		r, _ := kerrors.AsReject(err)
		return stats, r
	}
	if reject := feeCheck(ec.Fee, DeployHandler{}.FeeLeast(ec.DaaScore)); reject != nil {
		return stats, reject
	}

	pre, _ := state.ParseAmountAllowZero(p["pre"])
	max, _ := state.ParseAmountAllowZero(p["max"])
	lim, _ := state.ParseAmountAllowZero(p["lim"])
	dec, _ := strconv.Atoi(p["dec"])

	if !pre.IsZero() && !validAddress(addr.NetworkFromTestnet(ec.Testnet), p["to"]) {
		return stats, kerrors.Reject(kerrors.KindAddressInvalid, p["to"])
	}

	minted := state.ZeroAmount
	if !pre.IsZero() {
		minted = pre
		if !max.IsZero() {
			minted = pre.Clamp(max)
		}
	}

	token := &state.Token{
		Tick:          tick,
		MaxSupply:     max,
		MintLimit:     lim,
		PreMint:       pre,
		Decimals:      dec,
		Mode:          p["mod"],
		DeployAddress: p["from"],
		OwnerAddress:  p["from"],
		Minted:        minted,
		Burned:        state.ZeroAmount,
		DisplayName:   p["name"],
		DeployTxID:    ec.TxID,
		OpAdd:         ec.OpScore,
		OpMod:         ec.OpScore,
		MtsAdd:        ec.MtsAdd,
		MtsMod:        ec.MtsAdd,
	}
	slice.SetToken(token)

	balanceKey := p["to"] + "_" + tick
	if !minted.IsZero() {
		slice.SetBalance(&state.Balance{
			Address: p["to"], Tick: tick, Decimals: dec,
			Available: minted, Locked: state.ZeroAmount, OpMod: ec.OpScore,
		})
		stats.Tick(tick, 1)
		stats.Address(balanceKey, minted)
	} else {
		stats.Tick(tick, 0)
	}

	return stats, nil
}
