// Command krc20indexer is the single writer process: it owns the KV
// store, the runtime rings, and the ingestor loop that pulls VSPC windows
// from the configured Kaspa node and commits decoded operations (spec §5's
// single-writer model).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/AvatoLabs/kasplex-indexer/internal/config"
	"github.com/AvatoLabs/kasplex-indexer/internal/ingest"
	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/logging"
	"github.com/AvatoLabs/kasplex-indexer/internal/nodeclient"
	"github.com/AvatoLabs/kasplex-indexer/internal/runtime"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"

	"github.com/sirupsen/logrus"
)

const lockPath = "./.lockExecutor"

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "krc20indexer: load config: %v\n", err)
		return 1
	}

	lg, err := logging.New(cfg.Debug, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "krc20indexer: init logging: %v\n", err)
		return 1
	}
	logger := logging.Component(lg, "indexer")

	lock, err := acquireLock(lockPath)
	if err != nil {
		logger.WithError(err).Error("failed to acquire writer lock")
		return 1
	}
	defer lock.release()

	state.LoadReservedTicks(cfg.Startup.TickReserved)

	store, err := kvstore.Open(cfg.Rocksdb.Path)
	if err != nil {
		logger.WithError(err).Error("failed to open kv store")
		return 1
	}
	defer store.Close()

	seedDaaScore := uint64(0)
	if len(cfg.Startup.DaaScoreRange) > 0 {
		seedDaaScore = cfg.Startup.DaaScoreRange[0].Start
	}
	rt, err := runtime.Load(store, seedDaaScore)
	if err != nil {
		logger.WithError(err).Error("failed to load runtime rings")
		return 1
	}

	node := nodeclient.New(cfg.Startup.KaspaNodeURL, logging.Component(lg, "nodeclient"))
	var rest *nodeclient.RestClient
	if cfg.Rest.KaspaRestBaseURL != "" {
		rest = nodeclient.NewRestClient(cfg.Rest.KaspaRestBaseURL)
	}

	in := ingest.New(store, node, rest, rt, cfg.Startup.Hysteresis, cfg.Startup.IsTestnet, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutdown signal received, finishing current iteration")
		cancel()
	}()

	if cfg.HTTP.Bind != "" || cfg.HTTP.Port != 0 {
		go serveMetrics(cfg, in, logger)
	}

	if err := in.Run(ctx); err != nil {
		logger.WithError(err).Error("ingestor exited with error")
		return 1
	}
	logger.Info("clean shutdown")
	return 0
}

// serveMetrics exposes the writer's own Prometheus registry alongside the
// read-only query surface's; a single writer process and a single
// explorer process can both run /metrics without colliding since they
// bind different ports.
func serveMetrics(cfg *config.Config, in *ingest.Ingestor, logger *logrus.Entry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", in.Metrics.Handler())
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Bind, cfg.HTTP.Port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Warn("metrics server stopped")
	}
}
