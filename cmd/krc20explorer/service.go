package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AvatoLabs/kasplex-indexer/internal/kvstore"
	"github.com/AvatoLabs/kasplex-indexer/internal/pipeline"
	"github.com/AvatoLabs/kasplex-indexer/internal/state"
)

// QueryService wraps the read-only lookups the HTTP layer exposes,
// grounded on the teacher's LedgerService.
type QueryService struct {
	store kvstore.Store
}

func NewQueryService(store kvstore.Store) *QueryService {
	return &QueryService{store: store}
}

// Token returns the deployed token record for tick.
func (s *QueryService) Token(tick string) (*state.Token, error) {
	data, err := s.store.Get([]byte(state.TokenKey(strings.ToUpper(tick))))
	if err != nil {
		return nil, err
	}
	var t state.Token
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", tick, err)
	}
	return &t, nil
}

// BalancesForAddress lists every (tick, balance) row held by address.
func (s *QueryService) BalancesForAddress(address string) ([]*state.Balance, error) {
	prefix := []byte(fmt.Sprintf("stbalance_%s_", address))
	it := s.store.ScanPrefix(prefix)
	defer it.Close()

	var out []*state.Balance
	for it.Next() {
		var b state.Balance
		if err := json.Unmarshal(it.Value(), &b); err != nil {
			return nil, fmt.Errorf("decode balance %s: %w", it.Key(), err)
		}
		out = append(out, &b)
	}
	return out, it.Error()
}

// Balance returns the single (address, tick) balance row.
func (s *QueryService) Balance(address, tick string) (*state.Balance, error) {
	data, err := s.store.Get([]byte(state.BalanceKey(address, strings.ToUpper(tick))))
	if err != nil {
		return nil, err
	}
	var b state.Balance
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode balance %s/%s: %w", address, tick, err)
	}
	return &b, nil
}

// Operation returns the persisted record of one operation, accepted or
// rejected.
func (s *QueryService) Operation(txID string) (*pipeline.OpRecord, error) {
	data, err := s.store.Get([]byte(state.OpDataKey(txID)))
	if err != nil {
		return nil, err
	}
	var rec pipeline.OpRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode op record %s: %w", txID, err)
	}
	return &rec, nil
}
