package reorg

import (
	"testing"

	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/pipeline"
	"github.com/AvatoLabs/kasplex-indexer/internal/runtime"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
)

func testBech32Addr(t *testing.T) string {
	t.Helper()
	a, err := addr.Encode(addr.Testnet, addr.VersionSchnorr, make([]byte, 32))
	if err != nil {
		t.Fatalf("encode test address: %v", err)
	}
	return a
}

// TestDetectMismatchFindsFirstDivergentBlock covers S5's detection half.
func TestDetectMismatchFindsFirstDivergentBlock(t *testing.T) {
	cached := runtime.NewVSPCRing()
	cached.Append(runtime.VSPCEntry{DaaScore: 100, BlockHash: "h100"})
	cached.Append(runtime.VSPCEntry{DaaScore: 101, BlockHash: "h101"})

	fresh := []runtime.VSPCEntry{
		{DaaScore: 100, BlockHash: "h100"},
		{DaaScore: 101, BlockHash: "h101prime"},
	}
	daaScore, found := DetectMismatch(cached, fresh)
	if !found || daaScore != 101 {
		t.Fatalf("expected mismatch at daa_score=101, got found=%v daaScore=%d", found, daaScore)
	}
}

func TestDetectMismatchNoneFound(t *testing.T) {
	cached := runtime.NewVSPCRing()
	cached.Append(runtime.VSPCEntry{DaaScore: 100, BlockHash: "h100"})
	_, found := DetectMismatch(cached, []runtime.VSPCEntry{{DaaScore: 100, BlockHash: "h100"}})
	if found {
		t.Fatalf("expected no mismatch")
	}
}

// TestStepRewindsDeployAndRestoresEmptyState covers S5 end to end: apply
// S1's deploy, then roll it back and confirm the KV store returns to
// having no TEST token.
func TestStepRewindsDeployAndRestoresEmptyState(t *testing.T) {
	store := kvstore.NewMemStore()
	rt, err := runtime.Load(store, 110165000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alice := testBech32Addr(t)
	cand := pipeline.CandidateOp{
		TxID: "tx1", DaaScore: 110165000, Fee: 999999999999, Testnet: true,
		Payload: script.Payload{"p": "KRC-20", "op": "deploy", "tick": "TEST", "max": "1000000", "lim": "1000", "pre": "500", "from": alice},
	}

	result, err := pipeline.RunBatch(store, []pipeline.CandidateOp{cand}, "")
	if err != nil {
		t.Fatalf("unexpected error running batch: %v", err)
	}
	if result.OpRecords[0].OpAccept != 1 {
		t.Fatalf("expected deploy accepted, got %+v", result.OpRecords[0])
	}

	commitOps, err := pipeline.BuildCommitOps(nil, result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rt.VSPC.Append(runtime.VSPCEntry{DaaScore: 110165000, BlockHash: "H1"})
	rt.Rollback.Append(&runtime.RollbackRecord{
		StateBefore: result.StateBefore, StateAfter: result.Slice,
		OpScoreList: result.OpScoreList, TxIDList: result.TxIDList,
		DaaScoreStart: 110165000, DaaScoreEnd: 110165000,
		CheckpointBefore: "", CheckpointAfter: result.CheckpointAfter,
		OpScoreLast: result.OpScoreList[len(result.OpScoreList)-1],
	})
	commitOps, err = rt.PersistOps(commitOps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.ApplyBatch(commitOps); err != nil {
		t.Fatalf("unexpected error applying batch: %v", err)
	}

	if v, _ := store.Get([]byte("sttoken_TEST")); len(v) == 0 {
		t.Fatalf("expected TEST token persisted before rollback")
	}

	// Fresh VSPC window disagrees on the block hash at 110165000.
	rollbackDaaScore, found := DetectMismatch(rt.VSPC, []runtime.VSPCEntry{{DaaScore: 110165000, BlockHash: "H1prime"}})
	if !found || rollbackDaaScore != 110165000 {
		t.Fatalf("expected mismatch detected at 110165000, got found=%v score=%d", found, rollbackDaaScore)
	}

	rewindOps, err := Step(store, rt, rollbackDaaScore)
	if err != nil {
		t.Fatalf("unexpected error stepping rollback: %v", err)
	}
	if err := store.ApplyBatch(rewindOps); err != nil {
		t.Fatalf("unexpected error applying rewind: %v", err)
	}

	if _, err := store.Get([]byte("sttoken_TEST")); !kvstore.IsNotFound(err) {
		t.Fatalf("expected TEST token deleted after rewind, got err=%v", err)
	}
	if rt.VSPC.Len() != 0 {
		t.Fatalf("expected VSPC ring emptied of entries >= 110165000, got %d entries", rt.VSPC.Len())
	}
	if rt.Rollback.Len() != 0 {
		t.Fatalf("expected rollback ring emptied after rewinding its only record")
	}
}
