package script

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
)

// buildSingleKeyScript assembles a signature script carrying a Schnorr
// single-key redeem body with the given JSON payload, mirroring the wire
// format of spec §6: sigPush || 00 63 07 KASPLEX || param0 || param1 || 68.
func buildSingleKeyScript(t *testing.T, pubkey []byte, tail byte, pushLen int, payload []byte, aux map[byte][]byte) []byte {
	t.Helper()
	var redeem []byte
	redeem = append(redeem, byte(pushLen))
	redeem = append(redeem, pubkey...)
	redeem = append(redeem, tail)
	redeem = append(redeem, markerPrefix...)
	redeem = append(redeem, markerText...)

	for tag, data := range aux {
		redeem = append(redeem, tag)
		redeem = append(redeem, pushData(data)...)
	}
	redeem = append(redeem, 0x00)
	redeem = append(redeem, pushData(payload)...)
	redeem = append(redeem, 0x68)

	// pad a leading dummy signature-like push so the redeem body is not at
	// offset 0 (closer to a real scriptSig), then the final push carries
	// the redeem body bytes themselves.
	var script []byte
	dummy := []byte{0x01, 0x02}
	script = append(script, pushData(dummy)...)
	script = append(script, pushData(redeem)...)
	return script
}

func pushData(data []byte) []byte {
	if len(data) <= 0x4b {
		out := []byte{byte(len(data))}
		return append(out, data...)
	}
	if len(data) <= 0xff {
		out := []byte{0x4c, byte(len(data))}
		return append(out, data...)
	}
	out := []byte{0x4d, byte(len(data) & 0xff), byte(len(data) >> 8)}
	return append(out, data...)
}

func TestDecodeSingleKeySchnorrDeploy(t *testing.T) {
	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i + 1)
	}
	payload := []byte(`{"p":"KRC-20","op":"deploy","tick":"TEST","max":"1000000","lim":"1000","dec":"8"}`)
	raw := buildSingleKeyScript(t, pub, 0xac, 32, payload, nil)

	d, err := Decode(addr.Mainnet, hex.EncodeToString(raw))
	require.NoError(t, err)
	require.False(t, d.Multisig)
	require.Equal(t, "KRC-20", d.Payload["p"])
	require.Equal(t, "deploy", d.Payload["op"])
	require.Equal(t, "TEST", d.Payload["tick"])
	require.Contains(t, d.SenderAddress, "kaspa:")
}

func TestDecodeSingleKeyECDSAWithAux(t *testing.T) {
	pub := make([]byte, 33)
	for i := range pub {
		pub[i] = byte(200 + i)
	}
	payload := []byte(`{"p":"krc-20","op":"MINT","tick":"TEST","to":"kaspa:abc","amt":"5"}`)
	raw := buildSingleKeyScript(t, pub, 0xab, 33, payload, map[byte][]byte{0x51: []byte("7")})

	d, err := Decode(addr.Mainnet, hex.EncodeToString(raw))
	require.NoError(t, err)
	require.Equal(t, "KRC-20", d.Payload["p"])
	require.Equal(t, "mint", d.Payload["op"])
	require.Equal(t, "7", d.Extra["p1"])
}

func TestDecodeRejectsMissingMarker(t *testing.T) {
	pub := make([]byte, 32)
	raw := buildSingleKeyScript(t, pub, 0xac, 32, []byte(`{"p":"KRC-20","op":"mint"}`), nil)
	// Corrupt the marker bytes.
	for i, b := range raw {
		if b == markerPrefix[0] && i+1 < len(raw) && raw[i+1] == markerPrefix[1] {
			raw[i] = 0xff
			break
		}
	}
	_, err := Decode(addr.Mainnet, hex.EncodeToString(raw))
	require.ErrorIs(t, err, kerrors.ErrDecodeMalformed)
}

func TestDecodeRejectsShortScript(t *testing.T) {
	_, err := Decode(addr.Mainnet, "00112233")
	require.ErrorIs(t, err, kerrors.ErrDecodeMalformed)
}

func TestDecodeRejectsNonStringField(t *testing.T) {
	pub := make([]byte, 32)
	payload := []byte(`{"p":"KRC-20","op":"mint","amt":5}`)
	raw := buildSingleKeyScript(t, pub, 0xac, 32, payload, nil)
	_, err := Decode(addr.Mainnet, hex.EncodeToString(raw))
	require.ErrorIs(t, err, kerrors.ErrDecodeMalformed)
}

func TestEncodeJSONFieldOrderAndRoundTrip(t *testing.T) {
	payload := Payload{
		"p":    "KRC-20",
		"op":   "deploy",
		"tick": "TEST",
		"max":  "1000000",
		"dec":  "8",
		"lim":  "1000",
		"pre":  "500",
		"to":   "kaspa:A",
	}
	out, err := EncodeJSON("deploy", payload)
	require.NoError(t, err)
	require.Equal(t, `{"p":"KRC-20","op":"deploy","tick":"TEST","max":"1000000","dec":"8","lim":"1000","pre":"500","to":"kaspa:A"}`, string(out))

	decoded, err := parsePayloadJSON(out)
	require.NoError(t, err)
	require.Equal(t, payload, decoded)
}
