package state

import "fmt"

// Key builders for the flat KV namespace of spec §3. Kept centralised so
// every component agrees on the exact byte layout.

func TokenKey(tick string) string {
	return "sttoken_" + tick
}

func BalanceKey(address, tick string) string {
	return fmt.Sprintf("stbalance_%s_%s", address, tick)
}

func MarketKey(tick, seller, utxoTxID string) string {
	return fmt.Sprintf("stmarket_%s_%s_%s", tick, seller, utxoTxID)
}

func BlacklistKey(tick, address string) string {
	return fmt.Sprintf("stblacklist_%s_%s", tick, address)
}

func OpDataKey(txID string) string {
	return "opdata_" + txID
}

// OpRange buckets op_score into the oplist range used by OpListKey.
func OpRange(opScore uint64) uint64 {
	return opScore / 100000
}

func OpListKey(opScore uint64) string {
	return fmt.Sprintf("oplist_%d_%d", OpRange(opScore), opScore)
}

func VspcKey(daaScore uint64, blockHash string) string {
	return fmt.Sprintf("vspc_%d_%s", daaScore, blockHash)
}

const (
	RuntimeRollbackLastKey = "runtime_ROLLBACKLAST"
	RuntimeVspcLastKey     = "runtime_VSPCLAST"
	RuntimeSyncedKey       = "runtime_SYNCED"
)
