package state

import (
	"regexp"
	"strings"
	"sync"

	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
)

var tickSyntax = regexp.MustCompile(`^[A-Z]{4,6}$`)
var txIDSyntax = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ignoredTicks is the hardcoded denylist of well-known host-chain tickers
// (spec §4.4 deploy's tick_ignored clause) that can never be deployed.
var ignoredTicks = map[string]struct{}{
	"KASPA": {}, "KASPLX": {}, "KASP": {}, "WKAS": {}, "GIGA": {},
	"WBTC": {}, "WETH": {}, "USDT": {}, "USDC": {}, "FDUSD": {},
	"USDD": {}, "TUSD": {}, "USDP": {}, "PYUSD": {}, "EURC": {},
	"BUSD": {}, "GUSD": {}, "EURT": {}, "XAUT": {}, "TETHER": {},
}

// IsIgnoredTick reports whether tick is on the hardcoded denylist.
func IsIgnoredTick(tick string) bool {
	_, ok := ignoredTicks[strings.ToUpper(tick)]
	return ok
}

// ValidTickSyntax reports whether tick is 4-6 uppercase ASCII letters, or,
// when allowTxIDAlias is set, a 64-hex-character transaction id (spec §3,
// §4.4's "transfer-by-contract variant").
func ValidTickSyntax(tick string, allowTxIDAlias bool) bool {
	if tickSyntax.MatchString(tick) {
		return true
	}
	return allowTxIDAlias && txIDSyntax.MatchString(strings.ToLower(tick))
}

// IsTxIDAlias reports whether tick is a 64-hex-character transaction id
// rather than a short symbolic ticker.
func IsTxIDAlias(tick string) bool {
	return txIDSyntax.MatchString(strings.ToLower(tick))
}

// Reservation binds a reserved tick to the only address allowed to deploy
// it (spec §9's "global reserved-token map").
type Reservation struct {
	Tick    string
	Address string
}

// reservedTicks is the immutable read-only table loaded at startup (spec
// §9: "load into an immutable table at startup and guard it with a
// read-only accessor").
var reservedTicks struct {
	mu    sync.RWMutex
	table map[string]string
}

// LoadReservedTicks parses entries in "TICK_ADDRESS" form (spec §6's
// startup.tick_reserved) and installs them as the process-wide reservation
// table. Intended to run once at startup.
func LoadReservedTicks(entries []string) {
	table := make(map[string]string, len(entries))
	for _, e := range entries {
		idx := strings.LastIndex(e, "_")
		if idx <= 0 || idx == len(e)-1 {
			continue
		}
		tick := strings.ToUpper(e[:idx])
		addr := e[idx+1:]
		table[tick] = addr
	}
	reservedTicks.mu.Lock()
	reservedTicks.table = table
	reservedTicks.mu.Unlock()
}

// ReservedTicks is the read-only accessor over the reservation table.
func ReservedTicks() map[string]string {
	reservedTicks.mu.RLock()
	defer reservedTicks.mu.RUnlock()
	out := make(map[string]string, len(reservedTicks.table))
	for k, v := range reservedTicks.table {
		out[k] = v
	}
	return out
}

// CheckTickReserved enforces spec §4.4 deploy's tick_reserved clause: if
// tick is reserved and from does not match the reservation's address,
// reject.
func CheckTickReserved(tick, from string) error {
	reservedTicks.mu.RLock()
	addr, reserved := reservedTicks.table[strings.ToUpper(tick)]
	reservedTicks.mu.RUnlock()
	if reserved && addr != from {
		return kerrors.Reject(kerrors.KindTickReserved, "tick is reserved for another address")
	}
	return nil
}
