package ingest

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/nodeclient"
	"github.com/AvatoLabs/kasplex-indexer/internal/runtime"
)

// buildSingleKeyScript mirrors the script package's own test helper: a
// Schnorr single-key redeem body carrying payload, wrapped in a dummy
// outer push so the body is not at offset 0.
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

	var script []byte
	dummy := []byte{0x01, 0x02}
	script = append(script, pushData(dummy)...)
	script = append(script, pushData(redeem)...)
	return script
}

func pushData(data []byte) []byte {
	if len(data) <= 0x4b {
		return append([]byte{byte(len(data))}, data...)
	}
	return append([]byte{0x4c, byte(len(data))}, data...)
}

func newTestLogger() *logrus.Entry {
	lg := logrus.New()
	lg.SetOutput(nopWriter{})
	return logrus.NewEntry(lg)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// TestRunOnceDeploysFromDecodedScript exercises the full C8 path: fetch
// a VSPC window, fetch the transaction, decode its first input, run it
// through the pipeline, and commit alongside the updated runtime rings.
func TestRunOnceDeploysFromDecodedScript(t *testing.T) {
	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i + 1)
	}
	alice, err := addr.Encode(addr.Testnet, addr.VersionSchnorr, pub)
	if err != nil {
		t.Fatalf("encode address: %v", err)
	}
	payload := []byte(`{"p":"KRC-20","op":"deploy","tick":"TEST","max":"1000000","lim":"1000","pre":"500","dec":"8"}`)
	sigScript := hex.EncodeToString(buildSingleKeyScript(pub, payload))

	const daaScore = uint64(110165000)

	var calls int32
	nodeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string                 `json:"method"`
			Params map[string]interface{} `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")

		switch req.Method {
		case "getVirtualSelectedParentChainFromBlock":
			call := atomic.AddInt32(&calls, 1)
			if call == 1 {
				w.Write([]byte(`{"result":{"blocks":[{"hash":"H1","daaScore":` + itoa(daaScore) + `,"acceptedTransactionIds":["tx1"]}]}}`))
				return
			}
			w.Write([]byte(`{"result":{"blocks":[]}}`))
		case "getTransaction":
			w.Write([]byte(`{"result":{
				"inputs":[{"signatureScript":"` + sigScript + `","previousOutpoint":{"transactionId":"prev"}}],
				"outputs":[{"amount":1,"verboseData":{"scriptPublicKeyAddress":"` + alice + `"}}]
			}}`))
		}
	}))
	defer nodeSrv.Close()

	restSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fee":100000000000}`))
	}))
	defer restSrv.Close()

	store := kvstore.NewMemStore()
	rt, err := runtime.Load(store, daaScore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	node := nodeclient.New(nodeSrv.URL, nil)
	rest := nodeclient.NewRestClient(restSrv.URL)
	in := New(store, node, rest, rt, 3, true, newTestLogger())

	if err := in.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v, err := store.Get([]byte("sttoken_TEST")); err != nil || len(v) == 0 {
		t.Fatalf("expected TEST token persisted, err=%v", err)
	}
	if rt.NextDaaScore != daaScore+1 {
		t.Fatalf("expected NextDaaScore=%d, got %d", daaScore+1, rt.NextDaaScore)
	}
	if rt.VSPC.Len() != 1 || rt.Rollback.Len() != 1 {
		t.Fatalf("expected one VSPC entry and one rollback record, got vspc=%d rollback=%d", rt.VSPC.Len(), rt.Rollback.Len())
	}
}

func itoa(n uint64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
