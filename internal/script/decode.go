// Package script decodes the protocol payload embedded in a P2SH redeem
// script (component C2): it walks the signature script's data pushes to
// find the redeem body, recognises the single-key or multisig template,
// verifies the KASPLEX protocol marker, and extracts the JSON operation
// plus any auxiliary numbered parameters.
package script

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
)

// protocol marker: 00 63 07 || "KASPLEX" (ASCII, 7 bytes), spec §4.2.3/§6.
var markerPrefix = []byte{0x00, 0x63, 0x07}
var markerText = []byte("KASPLEX")

// auxTagNames maps the odd OP_N opcodes (0x51,0x53,...,0x5f) to their
// named auxiliary parameter, per spec §4.2.4.
var auxTagNames = map[byte]string{
	0x51: "p1", 0x53: "p3", 0x55: "p5", 0x57: "p7",
	0x59: "p9", 0x5b: "p11", 0x5d: "p13", 0x5f: "p15",
}

// Payload is the decoded JSON operation object; spec §4.2.6 requires every
// field to be a JSON string.
type Payload map[string]string

// Decoded is the result of successfully decoding a redeem script.
type Decoded struct {
	SenderAddress string
	Multisig      bool
	Payload       Payload
	// Extra holds auxiliary numbered parameters (p1, p3, ... p15) found
	// alongside the JSON payload slot.
	Extra map[string]string
}

// Decode parses a hex-encoded signature script. A structural mismatch or
// JSON parse failure returns kerrors.ErrDecodeMalformed wrapped with
// context — the transaction is silently skipped by the caller, never a
// fatal error.
func Decode(net addr.Network, scriptHex string) (*Decoded, error) {
	raw, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(scriptHex)))
	if err != nil {
		return nil, fmt.Errorf("%w: hex decode: %v", kerrors.ErrDecodeMalformed, err)
	}

	bodyStart, bodyLen, ok := findRedeemBody(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no redeem body push found", kerrors.ErrDecodeMalformed)
	}
	body := raw[bodyStart : bodyStart+bodyLen]

	sender, multisig, n, err := parseKeyTemplate(net, body)
	if err != nil {
		return nil, err
	}

	n, err = expectMarker(body, n)
	if err != nil {
		return nil, err
	}

	payloadJSON, extra, err := parseParamSlots(body, n)
	if err != nil {
		return nil, err
	}

	payload, err := parsePayloadJSON(payloadJSON)
	if err != nil {
		return nil, err
	}

	return &Decoded{
		SenderAddress: sender,
		Multisig:      multisig,
		Payload:       payload,
		Extra:         extra,
	}, nil
}

// parseKeyTemplate recognises the single-key or m-of-n multisig prefix of
// the redeem body and returns the sender address, whether it was multisig,
// and the byte offset immediately following the template.
func parseKeyTemplate(net addr.Network, body []byte) (sender string, multisig bool, next int, err error) {
	if m, ok := readOpN(body, 0); ok {
		return parseMultisigTemplate(net, body, m)
	}
	return parseSingleKeyTemplate(net, body)
}

func parseSingleKeyTemplate(net addr.Network, body []byte) (string, bool, int, error) {
	dataStart, dataLen, ok := readPush(body, 0)
	if !ok {
		return "", false, 0, fmt.Errorf("%w: missing pubkey push", kerrors.ErrDecodeMalformed)
	}
	tailPos := dataStart + dataLen
	if tailPos >= len(body) {
		return "", false, 0, fmt.Errorf("%w: truncated pubkey tail", kerrors.ErrDecodeMalformed)
	}
	tail := body[tailPos]
	pub := body[dataStart:tailPos]

	var version byte
	switch {
	case dataLen == 32 && tail == 0xac:
		version = addr.VersionSchnorr
	case dataLen == 33 && tail == 0xab:
		version = addr.VersionECDSA
	default:
		return "", false, 0, fmt.Errorf("%w: unrecognised pubkey push shape", kerrors.ErrDecodeMalformed)
	}

	address, err := addr.Encode(net, version, pub)
	if err != nil {
		return "", false, 0, fmt.Errorf("%w: %v", kerrors.ErrDecodeMalformed, err)
	}
	return address, false, tailPos + 1, nil
}

func parseMultisigTemplate(net addr.Network, body []byte, m int) (string, bool, int, error) {
	n := 1 // consumed the OP_m opcode byte
	var pubkeys [][]byte
	for attempt := 0; attempt < 16; attempt++ {
		dataStart, dataLen, ok := readPush(body, n)
		if !ok {
			break
		}
		if dataLen != 32 && dataLen != 33 {
			return "", false, 0, fmt.Errorf("%w: bad multisig pubkey length %d", kerrors.ErrDecodeMalformed, dataLen)
		}
		pubkeys = append(pubkeys, body[dataStart:dataStart+dataLen])
		n = dataStart + dataLen
	}
	if len(pubkeys) == 0 {
		return "", false, 0, fmt.Errorf("%w: empty multisig pubkey list", kerrors.ErrDecodeMalformed)
	}

	nOpN, ok := readOpN(body, n)
	if !ok || nOpN != len(pubkeys) {
		return "", false, 0, fmt.Errorf("%w: multisig OP_n mismatch", kerrors.ErrDecodeMalformed)
	}
	n++
	if m < 1 || m > nOpN || nOpN > 16 {
		return "", false, 0, fmt.Errorf("%w: multisig m/n out of range", kerrors.ErrDecodeMalformed)
	}

	if n >= len(body) {
		return "", false, 0, fmt.Errorf("%w: truncated multisig tail", kerrors.ErrDecodeMalformed)
	}
	tail := body[n]
	if tail != 0xa9 && tail != 0xae {
		return "", false, 0, fmt.Errorf("%w: bad multisig tail opcode", kerrors.ErrDecodeMalformed)
	}
	n++

	redeem := rebuildMultisigScript(m, pubkeys, nOpN, tail)
	hash := blake2b.Sum256(redeem)
	address, err := addr.Encode(net, addr.VersionP2SH, hash[:])
	if err != nil {
		return "", false, 0, fmt.Errorf("%w: %v", kerrors.ErrDecodeMalformed, err)
	}
	return address, true, n, nil
}

func rebuildMultisigScript(m int, pubkeys [][]byte, n int, tail byte) []byte {
	out := []byte{byte(0x50 + m)}
	for _, pk := range pubkeys {
		out = append(out, byte(len(pk)))
		out = append(out, pk...)
	}
	out = append(out, byte(0x50+n), tail)
	return out
}

func expectMarker(body []byte, n int) (int, error) {
	if n+len(markerPrefix)+len(markerText) > len(body) {
		return 0, fmt.Errorf("%w: truncated protocol marker", kerrors.ErrDecodeMalformed)
	}
	if string(body[n:n+len(markerPrefix)]) != string(markerPrefix) {
		return 0, fmt.Errorf("%w: missing KASPLEX prefix bytes", kerrors.ErrDecodeMalformed)
	}
	n += len(markerPrefix)
	if strings.ToUpper(string(body[n:n+len(markerText)])) != string(markerText) {
		return 0, fmt.Errorf("%w: missing KASPLEX marker text", kerrors.ErrDecodeMalformed)
	}
	n += len(markerText)
	return n, nil
}

// parseParamSlots reads tagged parameter slots until it hits the terminal
// 0x68, returning the raw JSON payload bytes and any auxiliary params. The
// aux slot (p1, p3, ... p15) is only present when the operation actually
// carries one; the common case is a single 0x00-tagged JSON slot followed
// immediately by 0x68, so the loop breaks on the terminator rather than
// assuming a fixed slot count.
func parseParamSlots(body []byte, n int) ([]byte, map[string]string, error) {
	var payloadJSON []byte
	extra := make(map[string]string)

	for {
		if n >= len(body) {
			return nil, nil, fmt.Errorf("%w: truncated parameter slot", kerrors.ErrDecodeMalformed)
		}
		tag := body[n]
		if tag == 0x68 {
			break
		}
		n++
		switch {
		case tag == 0x00:
			data, next, err := readParamData(body, n)
			if err != nil {
				return nil, nil, err
			}
			payloadJSON = data
			n = next
		default:
			name, isAux := auxTagNames[tag]
			if !isAux {
				return nil, nil, fmt.Errorf("%w: unrecognised parameter tag 0x%02x", kerrors.ErrDecodeMalformed, tag)
			}
			data, next, err := readParamData(body, n)
			if err != nil {
				return nil, nil, err
			}
			extra[name] = string(data)
			n = next
		}
	}

	if payloadJSON == nil {
		return nil, nil, fmt.Errorf("%w: missing JSON payload slot", kerrors.ErrDecodeMalformed)
	}
	return payloadJSON, extra, nil
}

func readParamData(body []byte, n int) ([]byte, int, error) {
	dataStart, dataLen, ok := readPush(body, n)
	if !ok {
		return nil, 0, fmt.Errorf("%w: malformed parameter push", kerrors.ErrDecodeMalformed)
	}
	if dataStart+dataLen > len(body) {
		return nil, 0, fmt.Errorf("%w: parameter push overruns script", kerrors.ErrDecodeMalformed)
	}
	return body[dataStart : dataStart+dataLen], dataStart + dataLen, nil
}

// parsePayloadJSON decodes the JSON object and enforces the "string
// fields only" contract of spec §4.2.6.
func parsePayloadJSON(data []byte) (Payload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: json parse: %v", kerrors.ErrDecodeMalformed, err)
	}
	out := make(Payload, len(raw))
	for k, v := range raw {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("%w: field %q is not a string", kerrors.ErrDecodeMalformed, k)
		}
		out[k] = s
	}
	p, ok := out["p"]
	if !ok || strings.ToUpper(p) != "KRC-20" {
		return nil, fmt.Errorf("%w: missing or wrong protocol field p", kerrors.ErrDecodeMalformed)
	}
	op, ok := out["op"]
	if !ok || op == "" {
		return nil, fmt.Errorf("%w: missing op field", kerrors.ErrDecodeMalformed)
	}
	out["p"] = strings.ToUpper(p)
	out["op"] = strings.ToLower(op)
	return out, nil
}
