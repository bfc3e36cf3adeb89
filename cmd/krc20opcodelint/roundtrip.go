package main

import (
	"encoding/hex"
	"fmt"

	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
)

// samplePayloads gives each registered opcode a minimal but valid payload
// to encode and round-trip.
var samplePayloads = map[string]script.Payload{
	"deploy":    {"p": "KRC-20", "op": "deploy", "tick": "TEST", "max": "1000000", "dec": "8"},
	"issue":     {"p": "KRC-20", "op": "issue", "tick": "TEST", "name": "Test Coin", "max": "1000000", "dec": "8"},
	"mint":      {"p": "KRC-20", "op": "mint", "tick": "TEST", "to": "kaspatest:dummy", "amt": "100"},
	"transfer":  {"p": "KRC-20", "op": "transfer", "tick": "TEST", "to": "kaspatest:dummy", "amt": "100"},
	"send":      {"p": "KRC-20", "op": "send", "tick": "TEST", "to": "kaspatest:dummy", "amt": "100"},
	"burn":      {"p": "KRC-20", "op": "burn", "tick": "TEST", "amt": "100"},
	"chown":     {"p": "KRC-20", "op": "chown", "tick": "TEST", "to": "kaspatest:dummy"},
	"blacklist": {"p": "KRC-20", "op": "blacklist", "tick": "TEST", "blacklist": "kaspatest:dummy"},
	"list":      {"p": "KRC-20", "op": "list", "tick": "TEST", "list": "100"},
}

// checkRoundTrip encodes payload to canonical JSON, wraps it in a
// single-key redeem script, decodes it back, and verifies every original
// field survived.
func checkRoundTrip(op string, payload script.Payload) error {
	_, sigScript, err := encodeSample(op, payload)
	if err != nil {
		return err
	}

	decoded, err := script.Decode(addr.Testnet, hex.EncodeToString(sigScript))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	for field, want := range payload {
		got := decoded.Payload[field]
		if got != want {
			return fmt.Errorf("field %q: want %q, got %q", field, want, got)
		}
	}
	return nil
}

// encodeSample encodes payload to canonical JSON and wraps it in a redeem
// script, returning both for checkRoundTrip and the show subcommand.
func encodeSample(op string, payload script.Payload) ([]byte, []byte, error) {
	encoded, err := script.EncodeJSON(op, payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode: %w", err)
	}

	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i + 1)
	}
	return encoded, buildSingleKeyScript(pub, encoded), nil
}

// buildSingleKeyScript wraps payload in the same Schnorr single-key
// redeem template the ingestor decodes in production (spec §6's wire
// format).
func buildSingleKeyScript(pubkey []byte, payload []byte) []byte {
	var redeem []byte
	redeem = append(redeem, byte(len(pubkey)))
	redeem = append(redeem, pubkey...)
	redeem = append(redeem, 0xac)
	redeem = append(redeem, 0x00, 0x63, 0x07)
	redeem = append(redeem, []byte("KASPLEX")...)
	redeem = append(redeem, 0x00)
	redeem = append(redeem, pushData(payload)...)
	redeem = append(redeem, 0x68)

	var out []byte
	dummy := []byte{0x01, 0x02}
	out = append(out, pushData(dummy)...)
	out = append(out, pushData(redeem)...)
	return out
}

func pushData(data []byte) []byte {
	if len(data) <= 0x4b {
		return append([]byte{byte(len(data))}, data...)
	}
	return append([]byte{0x4c, byte(len(data))}, data...)
}
