// Package state implements the typed entities of component C3 (Token,
// Balance, Market, Blacklist), their key-value layout and a diff-oriented
// StateSlice that is the unit of commit and rollback for the batch pipeline.
package state

// ModeMint is the empty-string mode marking a classic mint-capped token.
const ModeMint = ""

// ModeIssue marks an issue-mode token whose tick is the deploying tx id.
const ModeIssue = "issue"

// Token is the immutable identity plus mutable supply counters of one tick
// (spec §3 "Token").
type Token struct {
	Tick          string `json:"tick"`
	MaxSupply     Amount `json:"max_supply"`
	MintLimit     Amount `json:"mint_limit"`
	PreMint       Amount `json:"pre_mint"`
	Decimals      int    `json:"decimals"`
	Mode          string `json:"mode"`
	DeployAddress string `json:"deploy_address"`
	OwnerAddress  string `json:"owner_address"`
	Minted        Amount `json:"minted"`
	Burned        Amount `json:"burned"`
	DisplayName   string `json:"display_name"`
	DeployTxID    string `json:"deploy_tx_id"`
	OpAdd         uint64 `json:"op_add"`
	OpMod         uint64 `json:"op_mod"`
	MtsAdd        uint64 `json:"mts_add"`
	MtsMod        uint64 `json:"mts_mod"`
}

// IssueMode reports whether t is an issue-mode token; spec §4.4's mint
// validator treats both "" and legacy "0" as mint-mode.
func (t *Token) IssueMode() bool {
	return t.Mode != ModeMint && t.Mode != "0"
}

// Balance is one (address, tick) row (spec §3 "Balance"). A row with both
// components zero must be deleted — absence means zero.
type Balance struct {
	Address   string `json:"address"`
	Tick      string `json:"tick"`
	Decimals  int    `json:"decimals"`
	Available Amount `json:"available"`
	Locked    Amount `json:"locked"`
	OpMod     uint64 `json:"op_mod"`
}

// IsEmpty reports whether the row has no remaining value and must be
// deleted rather than stored.
func (b *Balance) IsEmpty() bool {
	return b.Available.IsZero() && b.Locked.IsZero()
}

// Market is a seller-locked listing offered for exchange (spec §3 "Market
// listing").
type Market struct {
	Tick          string `json:"tick"`
	SellerAddr    string `json:"seller_addr"`
	UtxoTxID      string `json:"utxo_tx_id"`
	BuyerAddr     string `json:"buyer_addr"`
	OfferedAmount Amount `json:"offered_amount"`
	LockedScript  string `json:"locked_script"`
	TakeAmount    Amount `json:"take_amount"`
	OpAdd         uint64 `json:"op_add"`
}

// Blacklist marks a sender whose transfers of Tick are refused (spec §3
// "Blacklist entry").
type Blacklist struct {
	Tick  string `json:"tick"`
	Addr  string `json:"addr"`
	OpAdd uint64 `json:"op_add"`
}
