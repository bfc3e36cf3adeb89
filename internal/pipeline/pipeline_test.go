package pipeline

import (
	"testing"

	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

func testAddress(t *testing.T, seed byte) string {
	t.Helper()
	payload := make([]byte, 32)
	payload[0] = seed
	a, err := addr.Encode(addr.Testnet, addr.VersionSchnorr, payload)
	if err != nil {
		t.Fatalf("encode test address: %v", err)
	}
	return a
}

// TestRunBatchDeployThenMintAcrossTwoBatches exercises S1 and S2 end to
// end through RunBatch and BuildCommitOps, including rehydration of the
// token persisted by the first batch.
func TestRunBatchDeployThenMintAcrossTwoBatches(t *testing.T) {
	store := kvstore.NewMemStore()
	alice := testAddress(t, 1)

	deploy := CandidateOp{
		TxID: "tx1", DaaScore: 1, IntraIndex: 0, Fee: 999999999999, Testnet: true,
		Payload: script.Payload{"p": "KRC-20", "op": "deploy", "tick": "TEST", "max": "1000000", "lim": "1000", "pre": "500", "from": alice},
	}
	result, err := RunBatch(store, []CandidateOp{deploy}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.OpRecords) != 1 || result.OpRecords[0].OpAccept != 1 {
		t.Fatalf("expected deploy accepted, got %+v", result.OpRecords)
	}

	commitOps, err := BuildCommitOps(nil, result)
	if err != nil {
		t.Fatalf("unexpected error building commit ops: %v", err)
	}
	if err := store.ApplyBatch(commitOps); err != nil {
		t.Fatalf("unexpected error applying batch: %v", err)
	}

	// Second batch: mint, against a fresh slice that must rehydrate TEST
	// from the store.
	mint := CandidateOp{
		TxID: "tx2", DaaScore: 2, IntraIndex: 0, Fee: 999999999999, Testnet: true,
		Payload: script.Payload{"p": "KRC-20", "op": "mint", "tick": "TEST", "from": alice},
	}
	result2, err := RunBatch(store, []CandidateOp{mint}, result.CheckpointAfter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result2.OpRecords) != 1 || result2.OpRecords[0].OpAccept != 1 {
		t.Fatalf("expected mint accepted, got %+v", result2.OpRecords)
	}
	if result2.CheckpointAfter == result.CheckpointAfter {
		t.Fatalf("expected checkpoint to change between batches")
	}

	token := result2.Slice.GetToken("TEST")
	if token == nil || token.Minted.String() != "1500" {
		t.Fatalf("expected minted=1500 after mint respecting limit, got %+v", token)
	}
	balance := result2.Slice.GetBalance(alice, "TEST")
	if balance == nil || balance.Available.String() != "1500" {
		t.Fatalf("expected balance available=1500, got %+v", balance)
	}
}

// TestRunBatchUnregisteredOpcodeIsSkipped covers the "not a protocol
// operation we implement" path: no record is produced and no error occurs.
func TestRunBatchUnregisteredOpcodeIsSkipped(t *testing.T) {
	store := kvstore.NewMemStore()
	cand := CandidateOp{
		TxID: "tx1", DaaScore: 1,
		Payload: script.Payload{"p": "KRC-20", "op": "frobnicate"},
	}
	result, err := RunBatch(store, []CandidateOp{cand}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.OpRecords) != 0 {
		t.Fatalf("expected no records for an unregistered opcode, got %+v", result.OpRecords)
	}
}

// TestRunBatchRejectedOpIsStillRecorded covers S4: an operation that fails
// validation inside Execute (not Validate) still produces an OpRecord with
// op_accept=-1, and does not mutate the slice.
func TestRunBatchRejectedOpIsStillRecorded(t *testing.T) {
	store := kvstore.NewMemStore()
	alice, bob := testAddress(t, 1), testAddress(t, 2)

	cand := CandidateOp{
		TxID: "tx1", DaaScore: 1, Fee: 999999999999,
		Payload: script.Payload{"p": "KRC-20", "op": "transfer", "tick": "TEST", "from": alice, "to": bob, "amt": "1"},
	}
	result, err := RunBatch(store, []CandidateOp{cand}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.OpRecords) != 1 {
		t.Fatalf("expected one recorded (rejected) operation, got %d", len(result.OpRecords))
	}
	rec := result.OpRecords[0]
	if rec.OpAccept != -1 || rec.OpError == "" {
		t.Fatalf("expected op_accept=-1 with an error message, got %+v", rec)
	}
	if result.Slice.GetToken("TEST") != nil {
		t.Fatalf("expected no state mutation for a rejected operation")
	}
}

// TestBuildCommitOpsDeletesEmptyBalanceRow covers S3 at the commit-ops
// layer: a drained balance row results in a delete op, not a put.
func TestBuildCommitOpsDeletesEmptyBalanceRow(t *testing.T) {
	store := kvstore.NewMemStore()
	alice, bob := testAddress(t, 1), testAddress(t, 2)

	store.Put([]byte(state.TokenKey("TEST")), []byte(`{"tick":"TEST","minted":"10"}`))
	store.Put([]byte(state.BalanceKey(alice, "TEST")), []byte(`{"address":"`+alice+`","tick":"TEST","available":"10","locked":"0"}`))

	cand := CandidateOp{
		TxID: "tx1", DaaScore: 1, Fee: 999999999999, Testnet: true,
		Payload: script.Payload{"p": "KRC-20", "op": "transfer", "tick": "TEST", "from": alice, "to": bob, "amt": "10"},
	}
	result, err := RunBatch(store, []CandidateOp{cand}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OpRecords[0].OpAccept != 1 {
		t.Fatalf("expected transfer accepted, got %+v", result.OpRecords[0])
	}
	if len(result.OpRecords[0].TickAffc) != 1 || result.OpRecords[0].TickAffc[0] != "TEST=-1" {
		t.Fatalf(`expected tick_affc ["TEST=-1"], got %v`, result.OpRecords[0].TickAffc)
	}

	commitOps, err := BuildCommitOps(nil, result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sawDelete bool
	senderKey := []byte(state.BalanceKey(alice, "TEST"))
	for _, op := range commitOps {
		if string(op.Key) == string(senderKey) {
			if op.Kind != kvstore.OpDelete {
				t.Fatalf("expected sender balance row to be deleted, got put")
			}
			sawDelete = true
		}
	}
	if !sawDelete {
		t.Fatalf("expected a delete op for the drained sender balance row")
	}
}
