// Package ops implements component C4: one validator/executor pair per
// opcode, sharing the lifecycle spec §4.4 describes (validate, prepare the
// state keys it will touch, execute against the hydrated slice).
package ops

import (
	"fmt"

	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// Stats accumulates the affected-set statistics an executor records
// alongside its accept/reject outcome (spec §4.4, §9): deliberately
// strings, since this on-disk format must match existing query paths.
type Stats struct {
	TickAffc    []string
	AddressAffc []string
}

// Tick appends a "TICK=delta" entry (delta is typically 1 on row creation,
// -1 on row deletion, 0 otherwise).
func (s *Stats) Tick(tick string, delta int) {
	s.TickAffc = append(s.TickAffc, fmt.Sprintf("%s=%d", tick, delta))
}

// Address appends an "address_tick=total" entry.
func (s *Stats) Address(key string, total state.Amount) {
	s.AddressAffc = append(s.AddressAffc, fmt.Sprintf("%s=%s", key, total.String()))
}

// ValidateContext carries the ambient facts every opcode's validator needs.
type ValidateContext struct {
	TxID     string
	DaaScore uint64
	Testnet  bool
	Network  addr.Network
}

// ExecContext carries the ambient facts every opcode's executor needs.
type ExecContext struct {
	OpScore  uint64
	DaaScore uint64
	MtsAdd   uint64
	TxID     string
	Fee      uint64
	Testnet  bool
}

// Handler is the per-opcode lifecycle of spec §4.4.
type Handler interface {
	// Recyclable reports whether this opcode may appear on non-first
	// inputs of the same transaction (spec §4.2, glossary).
	Recyclable() bool
	// FeeLeast is the minimum transaction fee the indexer requires.
	FeeLeast(daaScore uint64) uint64
	// Validate normalises and type-checks the payload fields this opcode
	// defines, clearing fields it does not use. It returns false (no
	// reject kind — the operation is simply not well-formed) when a
	// required field is absent or malformed.
	Validate(p script.Payload, extra map[string]string, vc ValidateContext) (script.Payload, bool)
	// PrepareKeys declares the state rows Execute will read or write.
	PrepareKeys(p script.Payload, slice *state.StateSlice)
	// Execute performs the mutation. A non-nil *kerrors.RejectError means
	// the operation is rejected (op_accept=-1); the slice is left
	// unmutated by the caller's convention (executors must not partially
	// mutate before returning a reject).
	Execute(p script.Payload, ec ExecContext, slice *state.StateSlice) (Stats, *kerrors.RejectError)
}

func feeCheck(fee, least uint64) *kerrors.RejectError {
	if fee == 0 {
		return kerrors.Reject(kerrors.KindFeeUnknown, "fee field is zero")
	}
	if fee < least {
		return kerrors.Reject(kerrors.KindFeeNotEnough, fmt.Sprintf("fee %d below minimum %d", fee, least))
	}
	return nil
}

func validAddress(net addr.Network, address string) bool {
	return address != "" && addr.Valid(address, net)
}
