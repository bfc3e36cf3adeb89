// Command krc20explorer is the read-only HTTP query surface: it opens the
// same bbolt file the writer owns (a second handle, read-only traffic
// only) and exposes token, balance and operation lookups plus Prometheus
// metrics, mirroring the teacher's ledger explorer's shape.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/AvatoLabs/kasplex-indexer/internal/config"
	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/logging"
	"github.com/AvatoLabs/kasplex-indexer/internal/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load(".env")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "krc20explorer: load config: %v\n", err)
		return 1
	}

	lg, err := logging.New(cfg.Debug, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "krc20explorer: init logging: %v\n", err)
		return 1
	}
	logger := logging.Component(lg, "explorer")

	store, err := kvstore.OpenReadOnly(cfg.Rocksdb.Path)
	if err != nil {
		logger.WithError(err).Error("failed to open kv store")
		return 1
	}
	defer store.Close()

	svc := NewQueryService(store)
	m := metrics.New()
	srv := NewServer(store, svc, m)

	bind := cfg.HTTP.Bind
	if bind == "" {
		bind = "0.0.0.0"
	}
	port := cfg.HTTP.Port
	if port == 0 {
		port = 8090
	}
	addr := fmt.Sprintf("%s:%d", bind, port)

	logger.WithField("addr", addr).Info("explorer listening")
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		logger.WithError(err).Error("explorer server stopped")
		return 1
	}
	return 0
}
