package nodeclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetVSPCFiltersAndLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Method != "getVirtualSelectedParentChainFromBlock" {
			t.Fatalf("unexpected method %q", req.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":{"blocks":[
			{"hash":"h1","daaScore":99,"acceptedTransactionIds":["t0"]},
			{"hash":"h2","daaScore":100,"acceptedTransactionIds":["t1"]},
			{"hash":"h3","daaScore":101,"acceptedTransactionIds":["t2"]},
			{"hash":"h4","daaScore":102,"acceptedTransactionIds":["t3"]}
		]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	entries, err := c.GetVSPC(context.Background(), 100, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries after limit, got %d", len(entries))
	}
	if entries[0].DaaScore != 100 || entries[1].DaaScore != 101 {
		t.Fatalf("expected entries starting at 100, got %+v", entries)
	}
}

func TestGetTransactionsSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)
		params, _ := req.Params.(map[string]interface{})
		txID, _ := params["transactionId"].(string)

		w.Header().Set("Content-Type", "application/json")
		if txID == "missing" {
			w.Write([]byte(`{"error":{"message":"transaction not found"}}`))
			return
		}
		w.Write([]byte(`{"result":{
			"transactionId":"` + txID + `",
			"inputs":[{"signatureScript":"00","previousOutpoint":{"transactionId":"prev1"}}],
			"outputs":[{"amount":1000,"verboseData":{"scriptPublicKeyAddress":"kaspatest:addr1"}}]
		}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	out, err := c.GetTransactions(context.Background(), []string{"tx1", "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected only the found transaction, got %d", len(out))
	}
	body, ok := out["tx1"]
	if !ok || len(body.Inputs) != 1 || len(body.Outputs) != 1 {
		t.Fatalf("expected tx1 body with one input and one output, got %+v ok=%v", body, ok)
	}
	if body.Outputs[0].Amount != 1000 || body.Outputs[0].ScriptPublicKeyAddress != "kaspatest:addr1" {
		t.Fatalf("unexpected output fields: %+v", body.Outputs[0])
	}
}

func TestTransactionFee(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fee":600000000}`))
	}))
	defer srv.Close()

	rc := NewRestClient(srv.URL)
	fee, err := rc.TransactionFee(context.Background(), "tx1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee != 600000000 {
		t.Fatalf("expected fee=600000000, got %d", fee)
	}
}
