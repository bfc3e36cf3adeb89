// Package kerrors declares the error taxonomy the indexer core propagates
// between components: storage failures are fatal, node failures are
// retried, decode failures are ignored, and validation failures reject a
// single operation without aborting the batch.
package kerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the propagation classes documented in spec §7.
var (
	// ErrKvIO marks a fatal storage I/O failure. The process must abort.
	ErrKvIO = errors.New("kv: io error")
	// ErrKvCorrupt marks a fatal decode failure of a value read from storage.
	ErrKvCorrupt = errors.New("kv: corrupt value")
	// ErrNotFound marks an absent key; callers treat this as a value, not a failure.
	ErrNotFound = errors.New("kv: not found")
	// ErrNodeUnavailable marks a transient failure talking to the external node.
	ErrNodeUnavailable = errors.New("node: unavailable")
	// ErrDecodeMalformed marks a redeem script or JSON payload that is not a protocol operation.
	ErrDecodeMalformed = errors.New("decode: malformed")
	// ErrRollbackInconsistent marks a pre-flight invariant failure on a rewind candidate.
	ErrRollbackInconsistent = errors.New("rollback: inconsistent")
	// ErrConfigInvalid marks a fatal configuration error, only raised at startup.
	ErrConfigInvalid = errors.New("config: invalid")
)

// RejectKind is one of the stable validation rejection codes from spec §7.
type RejectKind string

const (
	KindTickExisted          RejectKind = "tick_existed"
	KindTickNotFound         RejectKind = "tick_not_found"
	KindTickIgnored          RejectKind = "tick_ignored"
	KindTickReserved         RejectKind = "tick_reserved"
	KindModeInvalid          RejectKind = "mode_invalid"
	KindFeeUnknown           RejectKind = "fee_unknown"
	KindFeeNotEnough         RejectKind = "fee_not_enough"
	KindAddressInvalid       RejectKind = "address_invalid"
	KindAddressBlacklisted   RejectKind = "address_blacklisted"
	KindInsufficientBalance  RejectKind = "insufficient_balance"
	KindMintFinished         RejectKind = "mint_finished"
	KindExceedsMaxSupply     RejectKind = "exceeds_max_supply"
	KindUnauthorized         RejectKind = "unauthorized"
	KindInvalidPrice         RejectKind = "invalid_price"
	KindInvalidAmount        RejectKind = "invalid_amount"
)

// RejectError is a local (single-operation) validation rejection. Executors
// return it instead of a bare sentinel so callers can recover both the
// stable kind code and a human-readable message for op_error.
type RejectError struct {
	Kind    RejectKind
	Message string
}

func (e *RejectError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Reject constructs a *RejectError with the given kind and message.
func Reject(kind RejectKind, message string) *RejectError {
	return &RejectError{Kind: kind, Message: message}
}

// AsReject unwraps err into a *RejectError, if any wraps one.
func AsReject(err error) (*RejectError, bool) {
	var r *RejectError
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}
