package script

import (
	"bytes"
	"fmt"
)

// fieldOrders is the canonical on-chain field order per opcode (spec §6).
// Generation must reproduce this order exactly for round-trip tests.
var fieldOrders = map[string][]string{
	"deploy":    {"p", "op", "tick", "name", "max", "dec", "desc", "lim", "pre", "to"},
	"issue":     {"p", "op", "tick", "name", "max", "dec", "desc"},
	"mint":      {"p", "op", "tick", "to", "amt"},
	"transfer":  {"p", "op", "tick", "to", "amt", "ca"},
	"send":      {"p", "op", "tick", "to", "amt", "ca"},
	"burn":      {"p", "op", "tick", "amt"},
	"chown":     {"p", "op", "tick", "to"},
	"blacklist": {"p", "op", "tick", "blacklist"},
	"list":      {"p", "op", "tick", "list"},
}

// EncodeJSON renders payload as canonical, hex-encoding-ready JSON text in
// the field order fieldOrders defines for op, omitting any field that is
// empty or not part of that opcode's schema. Quoting and escaping are
// minimal (decimal digits, tick characters and addresses never need JSON
// escaping), matching the wire format's plain ASCII payloads.
func EncodeJSON(op string, payload Payload) ([]byte, error) {
	order, ok := fieldOrders[op]
	if !ok {
		return nil, fmt.Errorf("script: unknown opcode %q for encoding", op)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, field := range order {
		v, present := payload[field]
		if !present || v == "" {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteByte('"')
		buf.WriteString(field)
		buf.WriteString(`":"`)
		writeEscaped(&buf, v)
		buf.WriteByte('"')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeEscaped(buf *bytes.Buffer, s string) {
	for _, r := range s {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		default:
			buf.WriteRune(r)
		}
	}
}
