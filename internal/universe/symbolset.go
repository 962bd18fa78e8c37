package universe

import "sync"

// SymbolSet is an insertion-ordered set of symbols.
type SymbolSet struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	symbols []string
}

func NewSymbolSet() *SymbolSet {
	return &SymbolSet{
		seen:    make(map[string]struct{}),
		symbols: make([]string, 0),
	}
}

// Add inserts symbol and reports whether it was new.
func (s *SymbolSet) Add(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[symbol]; ok {
		return false
	}
	s.seen[symbol] = struct{}{}
	s.symbols = append(s.symbols, symbol)
	return true
}

// Collect drains ch into the set and returns once ch is closed.
func (s *SymbolSet) Collect(ch <-chan string) {
	for symbol := range ch {
		s.Add(symbol)
	}
}

func (s *SymbolSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.symbols)
}

func (s *SymbolSet) GetAll() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}
