package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bar holds the last observed OHLC prices for an instrument, in cents.
type Bar struct {
	Open   int64
	High   int64
	Low    int64
	Close  int64
	Volume int64
}

// TradeEntry is one round-trip position cycle for a strategy: the
// aggregation of every fill from the moment any position opens until the
// sum of tracked positions returns to zero. Monetary fields are dollars;
// flows are signed (buy flow negative, sell flow positive) so that
// PnL = BuyFlow + SellFlow.
type TradeEntry struct {
	TradeID  string
	Strategy string

	Position map[string]int64 // instrument → signed quantity
	Orders   map[int64]bool   // contributing order ids
	Fills    int              // fill events aggregated into this entry

	Fee float64
	Tax float64

	BuyFlow  float64
	SellFlow float64
	MaxAlloc float64 // peak absolute allocation over the entry's life

	PnL       float64
	Return    float64 // PnL / MaxAlloc
	NetReturn float64 // (PnL - Fee - Tax) / MaxAlloc

	// Intrabar mark-to-market extremes while the entry was open.
	MaxProfitClose   float64
	MaxProfitHigh    float64
	MaxDrawdownClose float64
	MaxDrawdownLow   float64

	OpenedAt time.Time
	ClosedAt time.Time
}

// NewTradeEntry creates an empty entry for the strategy. There is always
// exactly one current entry per strategy, even when inactive.
func NewTradeEntry(strategy string) *TradeEntry {
	return &TradeEntry{
		TradeID:  uuid.New().String(),
		Strategy: strategy,
		Position: make(map[string]int64),
		Orders:   make(map[int64]bool),
	}
}

// Flat reports whether every tracked position is zero. The entry is
// archived and replaced exactly when this becomes true after a fill.
func (t *TradeEntry) Flat() bool {
	for _, pos := range t.Position {
		if pos != 0 {
			return false
		}
	}
	return true
}

// Active reports whether the entry has aggregated any fills yet.
func (t *TradeEntry) Active() bool {
	return t.Fills > 0
}

// UpdateAlloc advances the peak absolute allocation from the current flows.
func (t *TradeEntry) UpdateAlloc() {
	alloc := t.BuyFlow + t.SellFlow
	if alloc < 0 {
		alloc = -alloc
	}
	if alloc > t.MaxAlloc {
		t.MaxAlloc = alloc
	}
}

// MarkToMarket returns the entry's unrealized result if every open position
// were liquidated at the given per-instrument prices (cents).
func (t *TradeEntry) MarkToMarket(prices map[string]int64, leverage float64) float64 {
	result := t.BuyFlow + t.SellFlow
	for instrument, pos := range t.Position {
		result += float64(pos) * CentsToDollars(prices[instrument]) * leverage
	}
	return result
}
