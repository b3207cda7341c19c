package cache

import "sync"

// SymbolSet is the set of symbols requested by any client. It only grows:
// there is no eviction, and any non-empty string a client sends is kept,
// whether or not the catalog knows it. Size it as a capacity concern; the
// interest_symbols gauge tracks it.
type SymbolSet struct {
	mu      sync.RWMutex
	order   []string
	members map[string]struct{}
}

// NewSymbolSet creates an empty set.
func NewSymbolSet() *SymbolSet {
	return &SymbolSet{
		members: make(map[string]struct{}),
	}
}

// Add inserts symbols and returns how many were new. Empty strings are ignored.
func (s *SymbolSet) Add(symbols ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, symbol := range symbols {
		if symbol == "" {
			continue
		}
		if _, ok := s.members[symbol]; ok {
			continue
		}
		s.members[symbol] = struct{}{}
		s.order = append(s.order, symbol)
		added++
	}
	return added
}

// Contains reports whether symbol has been added.
func (s *SymbolSet) Contains(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.members[symbol]
	return ok
}

// Snapshot returns the symbols in insertion order.
func (s *SymbolSet) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of symbols.
func (s *SymbolSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.order)
}
