package state

// StateSlice is the diff container operations mutate (spec §4.3, §4.5): four
// maps from key to value, where a present key mapped to nil means "absent"
// (read a miss, or deleted by an executor). Only keys present in the map are
// part of the diff; this is what lets the pipeline hydrate exactly the keys
// executors declared, snapshot them as state_before, and later persist only
// the touched rows.
type StateSlice struct {
	Tokens    map[string]*Token
	Balances  map[string]*Balance
	Markets   map[string]*Market
	Blacklist map[string]*Blacklist
}

// NewStateSlice returns an empty slice ready for key collection.
func NewStateSlice() *StateSlice {
	return &StateSlice{
		Tokens:    make(map[string]*Token),
		Balances:  make(map[string]*Balance),
		Markets:   make(map[string]*Market),
		Blacklist: make(map[string]*Blacklist),
	}
}

// TouchToken/TouchBalance/TouchMarket/TouchBlacklist declare a key the
// operation will read or write, without supplying a value yet (key
// collection, spec §4.5 step 1). A key already present is left untouched.

func (s *StateSlice) TouchToken(tick string) {
	key := TokenKey(tick)
	if _, ok := s.Tokens[key]; !ok {
		s.Tokens[key] = nil
	}
}

func (s *StateSlice) TouchBalance(address, tick string) {
	key := BalanceKey(address, tick)
	if _, ok := s.Balances[key]; !ok {
		s.Balances[key] = nil
	}
}

func (s *StateSlice) TouchMarket(tick, seller, utxoTxID string) {
	key := MarketKey(tick, seller, utxoTxID)
	if _, ok := s.Markets[key]; !ok {
		s.Markets[key] = nil
	}
}

func (s *StateSlice) TouchBlacklist(tick, address string) {
	key := BlacklistKey(tick, address)
	if _, ok := s.Blacklist[key]; !ok {
		s.Blacklist[key] = nil
	}
}

// GetToken/GetBalance/GetMarket/GetBlacklist return the current value for a
// key already touched, or nil if absent. They do not touch the key.

func (s *StateSlice) GetToken(tick string) *Token { return s.Tokens[TokenKey(tick)] }

func (s *StateSlice) GetBalance(address, tick string) *Balance {
	return s.Balances[BalanceKey(address, tick)]
}

func (s *StateSlice) GetMarket(tick, seller, utxoTxID string) *Market {
	return s.Markets[MarketKey(tick, seller, utxoTxID)]
}

func (s *StateSlice) GetBlacklist(tick, address string) *Blacklist {
	return s.Blacklist[BlacklistKey(tick, address)]
}

// SetToken/SetBalance/SetMarket/SetBlacklist write a value into the slice.
// A balance whose components are both zero is stored as a deletion
// (spec §3's "(0,0) row must be deleted" invariant).

func (s *StateSlice) SetToken(t *Token) { s.Tokens[TokenKey(t.Tick)] = t }

func (s *StateSlice) SetBalance(b *Balance) {
	key := BalanceKey(b.Address, b.Tick)
	if b.IsEmpty() {
		s.Balances[key] = nil
		return
	}
	s.Balances[key] = b
}

func (s *StateSlice) SetMarket(m *Market) {
	s.Markets[MarketKey(m.Tick, m.SellerAddr, m.UtxoTxID)] = m
}

func (s *StateSlice) SetBlacklist(b *Blacklist) {
	s.Blacklist[BlacklistKey(b.Tick, b.Addr)] = b
}

func (s *StateSlice) DeleteMarket(tick, seller, utxoTxID string) {
	s.Markets[MarketKey(tick, seller, utxoTxID)] = nil
}

// Clone deep-copies the slice, used to snapshot state_before ahead of
// execution (spec §4.5 step 3).
func (s *StateSlice) Clone() *StateSlice {
	out := NewStateSlice()
	for k, v := range s.Tokens {
		if v == nil {
			out.Tokens[k] = nil
			continue
		}
		cp := *v
		out.Tokens[k] = &cp
	}
	for k, v := range s.Balances {
		if v == nil {
			out.Balances[k] = nil
			continue
		}
		cp := *v
		out.Balances[k] = &cp
	}
	for k, v := range s.Markets {
		if v == nil {
			out.Markets[k] = nil
			continue
		}
		cp := *v
		out.Markets[k] = &cp
	}
	for k, v := range s.Blacklist {
		if v == nil {
			out.Blacklist[k] = nil
			continue
		}
		cp := *v
		out.Blacklist[k] = &cp
	}
	return out
}
