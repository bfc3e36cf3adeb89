// Package ingest implements component C8: the policy loop that pulls
// VSPC windows and transaction bodies from the external node, decodes
// their embedded operations, and drives the batch pipeline (C5) and
// the reorg engine (C6) (spec §4.8).
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AvatoLabs/kasplex-indexer/internal/addr"
	"github.com/AvatoLabs/kasplex-indexer/internal/kerrors"
	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/metrics"
	"github.com/AvatoLabs/kasplex-indexer/internal/nodeclient"
	"github.com/AvatoLabs/kasplex-indexer/internal/ops"
	"github.com/AvatoLabs/kasplex-indexer/internal/pipeline"
	"github.com/AvatoLabs/kasplex-indexer/internal/reorg"
	"github.com/AvatoLabs/kasplex-indexer/internal/runtime"
	"github.com/AvatoLabs/kasplex-indexer/internal/script"
)

const (
	// WindowMax is the largest VSPC window fetched per iteration.
	WindowMax = 1200
	// SyncedThreshold: a fetch returning fewer entries than this marks
	// the ingestor "synced" with the tip.
	SyncedThreshold = 99
	// VSPCCheckBack is how far behind the cached tip each fetch starts,
	// so the overlap segment can be compared for reorgs.
	VSPCCheckBack = 200
	// SyncedSleep/EmptySleep are the fixed inter-iteration sleeps of
	// spec §4.8.
	SyncedSleep = 850 * time.Millisecond
	EmptySleep  = 1550 * time.Millisecond
	// maxRollbackIterations bounds the rewind loop so a persistently
	// unresolvable divergence fails loudly instead of spinning forever.
	maxRollbackIterations = 64
)

// Ingestor owns the single writer path into the KV store: fetch, decode,
// execute, commit, all synchronously within one iteration (spec §5).
type Ingestor struct {
	Store      kvstore.Store
	Node       *nodeclient.Client
	Rest       *nodeclient.RestClient
	Runtime    *runtime.Runtime
	Hysteresis int
	Testnet    bool
	Network    addr.Network
	Logger     *logrus.Entry
	Metrics    *metrics.Metrics

	synced     bool
	checkpoint string
}

// New builds an Ingestor, seeding its checkpoint from the newest
// rollback record already on disk, if any.
func New(store kvstore.Store, node *nodeclient.Client, rest *nodeclient.RestClient, rt *runtime.Runtime, hysteresis int, testnet bool, logger *logrus.Entry) *Ingestor {
	in := &Ingestor{
		Store: store, Node: node, Rest: rest, Runtime: rt,
		Hysteresis: hysteresis, Testnet: testnet, Logger: logger,
		Metrics: metrics.New(),
	}
	node.UseMetrics(in.Metrics)
	in.Network = addr.NetworkFromTestnet(testnet)
	if rec, ok := rt.Rollback.Newest(); ok {
		in.checkpoint = rec.CheckpointAfter
	}
	return in
}

// Run loops RunOnce until ctx is cancelled, matching spec §5's
// cancellation model: the current iteration always runs to completion.
func (in *Ingestor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := in.RunOnce(ctx); err != nil {
			if errors.Is(err, kerrors.ErrNodeUnavailable) {
				in.Logger.WithError(err).Warn("ingest: node unavailable, retrying")
				time.Sleep(EmptySleep)
				continue
			}
			return err
		}
	}
}

// RunOnce performs one fetch-decode-execute-commit iteration.
func (in *Ingestor) RunOnce(ctx context.Context) error {
	in.Metrics.IngestLoopIters.Inc()
	traceID := uuid.NewString()
	logger := in.Logger.WithField("trace_id", traceID)

	fetchStart := in.Runtime.NextDaaScore
	if last, ok := in.Runtime.VSPC.Last(); ok && last.DaaScore > VSPCCheckBack {
		fetchStart = last.DaaScore - VSPCCheckBack
	}

	window, err := in.Node.GetVSPC(ctx, fetchStart, WindowMax)
	if err != nil {
		return err
	}
	if len(window) == 0 {
		logger.Debug("ingest: empty vspc window")
		time.Sleep(EmptySleep)
		return nil
	}

	if rollbackDaaScore, found := reorg.DetectMismatch(in.Runtime.VSPC, toRuntimeEntries(window)); found {
		logger.WithField("rollback_daa_score", rollbackDaaScore).Warn("ingest: reorg detected")
		return in.resolveRollback(ctx, rollbackDaaScore, logger)
	}

	in.synced = len(window) < SyncedThreshold

	var fresh []nodeclient.VSPCEntry
	for _, e := range window {
		if e.DaaScore >= in.Runtime.NextDaaScore {
			fresh = append(fresh, e)
		}
	}
	if in.synced && in.Hysteresis > 0 && len(fresh) > in.Hysteresis {
		fresh = fresh[:len(fresh)-in.Hysteresis]
	}

	for _, entry := range fresh {
		if err := in.processEntry(ctx, entry, logger); err != nil {
			return err
		}
	}

	if in.synced {
		time.Sleep(SyncedSleep)
	}
	return nil
}

// processEntry decodes every accepted transaction's inputs into
// candidate operations, runs the batch pipeline, and commits atomically
// together with the updated runtime rings.
func (in *Ingestor) processEntry(ctx context.Context, entry nodeclient.VSPCEntry, logger *logrus.Entry) error {
	txBodies, err := in.Node.GetTransactions(ctx, entry.AcceptedTxIDs)
	if err != nil {
		return err
	}

	var candidates []pipeline.CandidateOp
	var intraIndex uint64
	for _, txID := range entry.AcceptedTxIDs {
		body, ok := txBodies[txID]
		if !ok {
			continue
		}
		fee := in.transactionFee(ctx, txID)

		for inputIdx, input := range body.Inputs {
			decoded, err := script.Decode(in.Network, input.SignatureScript)
			if err != nil {
				continue
			}
			op := decoded.Payload["op"]
			if inputIdx > 0 && !ops.IsRecyclable(op) {
				continue
			}
			candidates = append(candidates, pipeline.CandidateOp{
				TxID: txID, DaaScore: entry.DaaScore, IntraIndex: intraIndex,
				Fee: fee, Testnet: in.Testnet, Network: in.Network,
				Sender: decoded.SenderAddress, Payload: decoded.Payload, Extra: decoded.Extra,
			})
			intraIndex++
		}
	}

	result, err := pipeline.RunBatch(in.Store, candidates, in.checkpoint)
	if err != nil {
		return err
	}

	commitOps, err := pipeline.BuildCommitOps(nil, result)
	if err != nil {
		return err
	}

	in.Runtime.VSPC.Append(runtime.VSPCEntry{DaaScore: entry.DaaScore, BlockHash: entry.BlockHash, AcceptedTxIDs: entry.AcceptedTxIDs})
	if len(result.OpScoreList) > 0 {
		in.Runtime.Rollback.Append(&runtime.RollbackRecord{
			StateBefore: result.StateBefore, StateAfter: result.Slice,
			OpScoreList: result.OpScoreList, TxIDList: result.TxIDList,
			DaaScoreStart: entry.DaaScore, DaaScoreEnd: entry.DaaScore,
			CheckpointBefore: in.checkpoint, CheckpointAfter: result.CheckpointAfter,
			OpScoreLast: result.OpScoreList[len(result.OpScoreList)-1],
		})
	}
	in.Runtime.Synced = in.synced
	in.Runtime.NextDaaScore = entry.DaaScore + 1

	commitOps, err = in.Runtime.PersistOps(commitOps)
	if err != nil {
		return err
	}
	if err := in.Store.ApplyBatch(commitOps); err != nil {
		return err
	}

	in.checkpoint = result.CheckpointAfter

	in.Metrics.BatchesApplied.Inc()
	if rec, ok := in.Runtime.Rollback.Newest(); ok {
		in.Metrics.OpScoreLast.Set(float64(rec.OpScoreLast))
	}
	in.Metrics.VspcRingSize.Set(float64(in.Runtime.VSPC.Len()))
	in.Metrics.RollbackRing.Set(float64(in.Runtime.Rollback.Len()))
	for _, rec := range result.OpRecords {
		if rec.OpAccept == 1 {
			in.Metrics.OpsAccepted.Inc()
		} else {
			in.Metrics.OpsRejected.WithLabelValues(rejectKind(rec.OpError)).Inc()
		}
	}

	logger.WithFields(logrus.Fields{
		"daa_score": entry.DaaScore, "ops": len(result.OpRecords),
	}).Info("ingest: committed batch")
	return nil
}

// rejectKind extracts the stable kind prefix from an OpRecord's OpError
// text ("kind" or "kind: message"), for metrics labelling.
func rejectKind(opError string) string {
	if i := strings.Index(opError, ":"); i >= 0 {
		return opError[:i]
	}
	return opError
}

// transactionFee looks up the fee paid by txID via the REST surface, or
// returns 0 when no REST endpoint is configured (every operation in
// that transaction is then rejected with fee_unknown, per spec §4.5).
func (in *Ingestor) transactionFee(ctx context.Context, txID string) uint64 {
	if in.Rest == nil {
		return 0
	}
	fee, err := in.Rest.TransactionFee(ctx, txID)
	if err != nil {
		return 0
	}
	return fee
}

// resolveRollback drives the reorg engine until a fresh fetch shows no
// further mismatch, per spec §4.6's "forward progress is blocked until
// detection produces no mismatch".
func (in *Ingestor) resolveRollback(ctx context.Context, rollbackDaaScore uint64, logger *logrus.Entry) error {
	for i := 0; i < maxRollbackIterations; i++ {
		before := in.Runtime.Rollback.Len()
		rewindOps, err := reorg.Step(in.Store, in.Runtime, rollbackDaaScore)
		if err != nil {
			return err
		}
		if err := in.Store.ApplyBatch(rewindOps); err != nil {
			return err
		}
		in.Metrics.RollbacksTotal.Add(float64(before - in.Runtime.Rollback.Len()))
		if rec, ok := in.Runtime.Rollback.Newest(); ok {
			in.checkpoint = rec.CheckpointAfter
		} else {
			in.checkpoint = ""
		}
		in.Runtime.NextDaaScore = rollbackDaaScore

		fetchStart := in.Runtime.NextDaaScore
		if last, ok := in.Runtime.VSPC.Last(); ok && last.DaaScore > VSPCCheckBack {
			fetchStart = last.DaaScore - VSPCCheckBack
		}
		window, err := in.Node.GetVSPC(ctx, fetchStart, WindowMax)
		if err != nil {
			return err
		}
		next, found := reorg.DetectMismatch(in.Runtime.VSPC, toRuntimeEntries(window))
		if !found {
			logger.Info("ingest: reorg resolved")
			return nil
		}
		rollbackDaaScore = next
	}
	return fmt.Errorf("ingest: reorg unresolved after %d rollback iterations", maxRollbackIterations)
}

func toRuntimeEntries(entries []nodeclient.VSPCEntry) []runtime.VSPCEntry {
	out := make([]runtime.VSPCEntry, len(entries))
	for i, e := range entries {
		out[i] = runtime.VSPCEntry{DaaScore: e.DaaScore, BlockHash: e.BlockHash, AcceptedTxIDs: e.AcceptedTxIDs}
	}
	return out
}
