package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/metrics"
)

// Server exposes the indexer's persisted state over a small read-only
// HTTP API, the chi-routed counterpart of the teacher's mux-routed
// ledger explorer.
type Server struct {
	router *chi.Mux
	svc    *QueryService
	store  kvstore.Store
}

func NewServer(store kvstore.Store, svc *QueryService, m *metrics.Metrics) *Server {
	s := &Server{router: chi.NewRouter(), svc: svc, store: store}
	s.router.Use(requestLogger)
	s.routes(m)
	return s
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) routes(m *metrics.Metrics) {
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Handle("/metrics", m.Handler())
	s.router.Get("/tokens/{tick}", s.handleToken)
	s.router.Get("/balances/{address}", s.handleBalancesForAddress)
	s.router.Get("/balances/{address}/{tick}", s.handleBalance)
	s.router.Get("/ops/{txID}", s.handleOperation)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	tick := chi.URLParam(r, "tick")
	t, err := s.svc.Token(tick)
	if err != nil {
		writeNotFound(w, err)
		return
	}
	writeJSON(w, t)
}

func (s *Server) handleBalancesForAddress(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	balances, err := s.svc.BalancesForAddress(address)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, balances)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	tick := chi.URLParam(r, "tick")
	b, err := s.svc.Balance(address, tick)
	if err != nil {
		writeNotFound(w, err)
		return
	}
	writeJSON(w, b)
}

func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "txID")
	rec, err := s.svc.Operation(txID)
	if err != nil {
		writeNotFound(w, err)
		return
	}
	writeJSON(w, rec)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeNotFound(w http.ResponseWriter, err error) {
	if kvstore.IsNotFound(err) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
