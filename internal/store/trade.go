package store

import (
	"sync"

	"github.com/raulikeda/EventBacktesting/internal/domain"
)

// TradeStore is a thread-safe in-memory archive of closed round-trip trade
// entries, keyed by strategy. Entries are append-only and chronological.
type TradeStore struct {
	mu      sync.RWMutex
	entries map[string][]*domain.TradeEntry // strategy → closed entries
}

// NewTradeStore creates an empty TradeStore.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		entries: make(map[string][]*domain.TradeEntry),
	}
}

// Append archives a closed entry under its strategy.
func (s *TradeStore) Append(e *domain.TradeEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[e.Strategy] = append(s.entries[e.Strategy], e)
}

// ListByStrategy returns the strategy's closed entries in closing order.
// Returns an empty slice if none exist.
func (s *TradeStore) ListByStrategy(strategy string) []*domain.TradeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[strategy]
	if entries == nil {
		return []*domain.TradeEntry{}
	}

	// Return a copy to avoid callers mutating the internal slice.
	result := make([]*domain.TradeEntry, len(entries))
	copy(result, entries)
	return result
}
