package script

import "fmt"

// readPush reads one length-prefixed data push starting at byte offset i of
// script, supporting the three operand encodings of spec §4.2.1: a direct
// 1-byte length (<=75), 0x4c + 1-byte length (<=255), or 0x4d + 2-byte
// little-endian length (<=65535). It returns the byte offset the pushed
// data starts at, its length, and ok=false if i does not begin a push.
func readPush(s []byte, i int) (dataStart, dataLen int, ok bool) {
	if i >= len(s) {
		return 0, 0, false
	}
	op := s[i]
	switch {
	case op <= 0x4b:
		return i + 1, int(op), true
	case op == 0x4c:
		if i+2 > len(s) {
			return 0, 0, false
		}
		return i + 2, int(s[i+1]), true
	case op == 0x4d:
		if i+3 > len(s) {
			return 0, 0, false
		}
		n := int(s[i+1]) | int(s[i+2])<<8
		return i + 3, n, true
	default:
		return 0, 0, false
	}
}

// readOpN reads a single OP_m/OP_n opcode (0x51-0x60, i.e. OP_1..OP_16) at
// offset i and returns m in [1,16].
func readOpN(s []byte, i int) (n int, ok bool) {
	if i >= len(s) {
		return 0, false
	}
	op := s[i]
	if op < 0x51 || op > 0x60 {
		return 0, false
	}
	return int(op) - 0x50, true
}

// findRedeemBody walks up to 16 successive data pushes from the start of
// the signature script looking for the final push: the one whose data
// exactly reaches the end of the script and whose length exceeds 94 bytes
// (spec §4.2.1). It returns the byte range of that push's data.
func findRedeemBody(s []byte) (start, length int, ok bool) {
	i := 0
	for attempt := 0; attempt < 16; attempt++ {
		dataStart, dataLen, r := readPush(s, i)
		if !r {
			return 0, 0, false
		}
		end := dataStart + dataLen
		switch {
		case end > len(s):
			return 0, 0, false
		case end == len(s):
			if dataLen <= 94 {
				return 0, 0, false
			}
			return dataStart, dataLen, true
		default:
			i = end
		}
	}
	return 0, 0, false
}

// hexErr formats a decode-position error for diagnostics; decode failures
// are always treated as "not an operation" by the caller, never fatal.
func hexErr(where string, i int) error {
	return fmt.Errorf("script: %s at offset %d", where, i)
}
