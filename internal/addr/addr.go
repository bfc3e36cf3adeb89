// Package addr implements the bech32-form address codec the script
// decoder treats as an external pure-function primitive (spec §1, §6):
// encode/decode a (version-byte || payload) tuple under the "kaspa" or
// "kaspatest" human-readable prefix. It carries no state and no protocol
// knowledge beyond the wire contract in spec §4.2/§6.
package addr

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Network selects the bech32 human-readable part.
type Network int

const (
	Mainnet Network = iota
	Testnet
)

// NetworkFromTestnet maps the configuration's is_testnet flag to a Network.
func NetworkFromTestnet(testnet bool) Network {
	if testnet {
		return Testnet
	}
	return Mainnet
}

func (n Network) hrp() string {
	if n == Testnet {
		return "kaspatest"
	}
	return "kaspa"
}

// Version bytes for the single-key and multisig P2SH address forms (spec §4.2.5).
const (
	VersionSchnorr byte = 0x00
	VersionECDSA   byte = 0x01
	VersionP2SH    byte = 0x08
)

// Encode bech32-encodes (version || payload) under net's HRP, separated by
// the literal ":" the spec's wire format uses instead of bech32's usual "1".
func Encode(net Network, version byte, payload []byte) (string, error) {
	data := make([]byte, 0, 1+len(payload))
	data = append(data, version)
	data = append(data, payload...)

	conv, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("addr: convert bits: %w", err)
	}
	encoded, err := bech32.Encode(net.hrp(), conv)
	if err != nil {
		return "", fmt.Errorf("addr: encode: %w", err)
	}
	// bech32.Encode joins hrp and data with "1"; the wire format here uses
	// ":" (e.g. "kaspa:qq...") so translate the separator.
	return strings.Replace(encoded, net.hrp()+"1", net.hrp()+":", 1), nil
}

// Decode parses a "kaspa:..."/"kaspatest:..." address back into its
// network, version byte and payload.
func Decode(address string) (Network, byte, []byte, error) {
	var net Network
	var rest string
	switch {
	case strings.HasPrefix(address, "kaspatest:"):
		net = Testnet
		rest = address[len("kaspatest:"):]
	case strings.HasPrefix(address, "kaspa:"):
		net = Mainnet
		rest = address[len("kaspa:"):]
	default:
		return 0, 0, nil, fmt.Errorf("addr: unrecognised prefix in %q", address)
	}

	_, data, err := bech32.Decode(net.hrp() + "1" + rest)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("addr: decode: %w", err)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("addr: convert bits: %w", err)
	}
	if len(raw) < 1 {
		return 0, 0, nil, fmt.Errorf("addr: empty payload")
	}
	return net, raw[0], raw[1:], nil
}

// Valid reports whether address is syntactically a valid address for the
// given network (spec §4.4's "syntactically a valid address" clause).
func Valid(address string, net Network) bool {
	gotNet, _, payload, err := Decode(address)
	if err != nil {
		return false
	}
	return gotNet == net && len(payload) > 0
}
