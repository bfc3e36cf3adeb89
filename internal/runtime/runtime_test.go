package runtime

import (
	"testing"

	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
)

func TestVSPCRingDropsOldestBeyondMax(t *testing.T) {
	r := NewVSPCRing()
	for i := 0; i < VSPCRingMax+10; i++ {
		r.Append(VSPCEntry{DaaScore: uint64(i)})
	}
	if r.Len() != VSPCRingMax {
		t.Fatalf("expected ring capped at %d, got %d", VSPCRingMax, r.Len())
	}
	first := r.Entries()[0]
	if first.DaaScore != 10 {
		t.Fatalf("expected oldest surviving entry daa_score=10, got %d", first.DaaScore)
	}
}

func TestVSPCRingTruncateFrom(t *testing.T) {
	r := NewVSPCRing()
	for i := uint64(100); i < 110; i++ {
		r.Append(VSPCEntry{DaaScore: i, BlockHash: "h"})
	}
	r.TruncateFrom(105)
	if r.Len() != 5 {
		t.Fatalf("expected 5 entries remaining, got %d", r.Len())
	}
	last, _ := r.Last()
	if last.DaaScore != 104 {
		t.Fatalf("expected newest surviving entry 104, got %d", last.DaaScore)
	}
}

func TestRollbackRingTruncatesBySpan(t *testing.T) {
	r := NewRollbackRing()
	r.Append(&RollbackRecord{DaaScoreStart: 0, DaaScoreEnd: 10})
	r.Append(&RollbackRecord{DaaScoreStart: 10, DaaScoreEnd: 20})
	r.Append(&RollbackRecord{DaaScoreStart: 20, DaaScoreEnd: RollbackRingGap + 5})
	if r.Len() != 2 {
		t.Fatalf("expected the oldest record truncated once span exceeds %d, got %d records", RollbackRingGap, r.Len())
	}
	if r.Records()[0].DaaScoreStart != 10 {
		t.Fatalf("expected oldest surviving record to start at 10, got %d", r.Records()[0].DaaScoreStart)
	}
}

func TestRollbackRingPopNewest(t *testing.T) {
	r := NewRollbackRing()
	r.Append(&RollbackRecord{DaaScoreStart: 0, DaaScoreEnd: 1, OpScoreLast: 1})
	r.Append(&RollbackRecord{DaaScoreStart: 1, DaaScoreEnd: 2, OpScoreLast: 2})

	rec, ok := r.PopNewest()
	if !ok || rec.OpScoreLast != 2 {
		t.Fatalf("expected to pop the newest record (OpScoreLast=2), got %+v ok=%v", rec, ok)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 record remaining, got %d", r.Len())
	}
}

func TestLoadSeedsNextDaaScoreOnEmptyState(t *testing.T) {
	store := kvstore.NewMemStore()
	rt, err := Load(store, 83441551)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rt.NextDaaScore != 83441551 {
		t.Fatalf("expected seeded NextDaaScore=83441551, got %d", rt.NextDaaScore)
	}
	if rt.VSPC.Len() != 0 || rt.Rollback.Len() != 0 {
		t.Fatalf("expected empty rings on first load")
	}
}

func TestPersistAndReload(t *testing.T) {
	store := kvstore.NewMemStore()
	rt, err := Load(store, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rt.VSPC.Append(VSPCEntry{DaaScore: 100, BlockHash: "h100"})
	rt.Rollback.Append(&RollbackRecord{DaaScoreStart: 100, DaaScoreEnd: 100})
	rt.Synced = true

	ops, err := rt.PersistOps(nil)
	if err != nil {
		t.Fatalf("unexpected error building persist ops: %v", err)
	}
	if err := store.ApplyBatch(ops); err != nil {
		t.Fatalf("unexpected error applying batch: %v", err)
	}

	reloaded, err := Load(store, 100)
	if err != nil {
		t.Fatalf("unexpected error reloading: %v", err)
	}
	if reloaded.NextDaaScore != 101 {
		t.Fatalf("expected NextDaaScore=101 after reload, got %d", reloaded.NextDaaScore)
	}
	if reloaded.Rollback.Len() != 1 || !reloaded.Synced {
		t.Fatalf("expected reloaded state to match persisted state, got %+v", reloaded)
	}
}
