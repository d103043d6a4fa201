package domain

import (
	"math"
	"testing"
)

func TestTradeEntry_FlatAndActive(t *testing.T) {
	e := NewTradeEntry("alpha")
	if !e.Flat() {
		t.Error("expected a fresh entry to be flat")
	}
	if e.Active() {
		t.Error("expected a fresh entry to be inactive")
	}

	e.Position["PETR4"] = 100
	e.Fills = 1
	if e.Flat() {
		t.Error("expected open position to be non-flat")
	}
	if !e.Active() {
		t.Error("expected entry with fills to be active")
	}

	// Offsetting positions across instruments do not cancel out.
	e.Position["PETR4"] = 0
	e.Position["VALE3"] = -50
	if e.Flat() {
		t.Error("expected non-zero position on any instrument to be non-flat")
	}

	e.Position["VALE3"] = 0
	if !e.Flat() {
		t.Error("expected all-zero positions to be flat")
	}
}

func TestTradeEntry_UpdateAlloc(t *testing.T) {
	e := NewTradeEntry("alpha")
	e.BuyFlow = -2000
	e.UpdateAlloc()
	if e.MaxAlloc != 2000 {
		t.Errorf("expected max alloc 2000, got %v", e.MaxAlloc)
	}

	// A smaller net exposure never lowers the peak.
	e.SellFlow = 1500
	e.UpdateAlloc()
	if e.MaxAlloc != 2000 {
		t.Errorf("expected peak to stick at 2000, got %v", e.MaxAlloc)
	}

	e.BuyFlow = -5000
	e.UpdateAlloc()
	if e.MaxAlloc != 3500 {
		t.Errorf("expected peak 3500, got %v", e.MaxAlloc)
	}
}

func TestTradeEntry_MarkToMarket(t *testing.T) {
	e := NewTradeEntry("alpha")
	e.BuyFlow = -2000 // bought 100 at $20.00
	e.Position["PETR4"] = 100

	mtm := e.MarkToMarket(map[string]int64{"PETR4": 2050}, 1)
	if math.Abs(mtm-50) > 1e-9 {
		t.Errorf("expected mark-to-market 50, got %v", mtm)
	}

	// Leverage scales the open-position leg.
	mtm = e.MarkToMarket(map[string]int64{"PETR4": 2050}, 2)
	if math.Abs(mtm-(100*20.50*2-2000)) > 1e-9 {
		t.Errorf("unexpected leveraged mark-to-market: %v", mtm)
	}
}

func TestNewTradeEntry_UniqueIDs(t *testing.T) {
	a := NewTradeEntry("alpha")
	b := NewTradeEntry("alpha")
	if a.TradeID == "" || a.TradeID == b.TradeID {
		t.Errorf("expected distinct non-empty trade ids, got %q and %q", a.TradeID, b.TradeID)
	}
}
