package domain

import (
	"errors"
	"testing"
)

func TestNewOrder_Valid(t *testing.T) {
	o, err := NewOrder("PETR4", OrderSideBuy, 100, 2030, "strat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != OrderStatusNew {
		t.Errorf("expected status new, got %s", o.Status)
	}
	if o.ID != 0 {
		t.Errorf("expected no id before allocation, got %d", o.ID)
	}
	if o.Remaining() != 100 {
		t.Errorf("expected remaining 100, got %d", o.Remaining())
	}
	if o.Market() {
		t.Error("expected limit order, got market")
	}
}

func TestNewOrder_MarketPrice(t *testing.T) {
	o, err := NewOrder("PETR4", OrderSideSell, 10, 0, "strat")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !o.Market() {
		t.Error("expected price 0 to mean market order")
	}
}

func TestNewOrder_Validation(t *testing.T) {
	tests := []struct {
		name       string
		instrument string
		side       OrderSide
		quantity   int64
		price      int64
		owner      string
	}{
		{"empty instrument", "", OrderSideBuy, 10, 100, "s"},
		{"lowercase instrument", "petr4", OrderSideBuy, 10, 100, "s"},
		{"too long instrument", "ABCDEFGHIJKLM", OrderSideBuy, 10, 100, "s"},
		{"unknown side", "PETR4", OrderSide("hold"), 10, 100, "s"},
		{"zero quantity", "PETR4", OrderSideBuy, 0, 100, "s"},
		{"negative quantity", "PETR4", OrderSideBuy, -5, 100, "s"},
		{"negative price", "PETR4", OrderSideBuy, 10, -1, "s"},
		{"empty owner", "PETR4", OrderSideBuy, 10, 100, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder(tt.instrument, tt.side, tt.quantity, tt.price, tt.owner)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestApplyFill_FullFill(t *testing.T) {
	o, _ := NewOrder("PETR4", OrderSideBuy, 5, 2032, "s")
	if err := o.ApplyFill(5, 2031); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != OrderStatusFilled {
		t.Errorf("expected status filled, got %s", o.Status)
	}
	if o.Executed != 5 {
		t.Errorf("expected executed 5, got %d", o.Executed)
	}
	if o.Average != 2031 {
		t.Errorf("expected average 2031, got %v", o.Average)
	}
}

func TestApplyFill_PartialThenFull_VWAP(t *testing.T) {
	o, _ := NewOrder("PETR4", OrderSideBuy, 30, 2100, "s")
	if err := o.ApplyFill(10, 2000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != OrderStatusPartial {
		t.Errorf("expected status partial, got %s", o.Status)
	}
	if err := o.ApplyFill(20, 2090); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Status != OrderStatusFilled {
		t.Errorf("expected status filled, got %s", o.Status)
	}
	// (10*2000 + 20*2090) / 30 = 2060
	if o.Average != 2060 {
		t.Errorf("expected average 2060, got %v", o.Average)
	}
	if o.Remaining() != 0 {
		t.Errorf("expected remaining 0, got %d", o.Remaining())
	}
}

func TestApplyFill_Overfill(t *testing.T) {
	o, _ := NewOrder("PETR4", OrderSideBuy, 5, 2032, "s")
	if err := o.ApplyFill(6, 2031); !errors.Is(err, ErrInvalidFill) {
		t.Fatalf("expected ErrInvalidFill, got %v", err)
	}
	if o.Executed != 0 {
		t.Errorf("expected no fill recorded, got executed %d", o.Executed)
	}
}

func TestApplyFill_TerminalOrder(t *testing.T) {
	o, _ := NewOrder("PETR4", OrderSideSell, 5, 2032, "s")
	if err := o.ApplyFill(5, 2032); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := o.ApplyFill(1, 2032); !errors.Is(err, ErrOrderNotFillable) {
		t.Fatalf("expected ErrOrderNotFillable, got %v", err)
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	terminal := []OrderStatus{OrderStatusFilled, OrderStatusRejected, OrderStatusCanceled}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	open := []OrderStatus{OrderStatusNew, OrderStatusPartial}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}

func TestOrderSide_IsSell(t *testing.T) {
	if OrderSideBuy.IsSell() {
		t.Error("buy must not be a sell side")
	}
	if !OrderSideSell.IsSell() {
		t.Error("sell must be a sell side")
	}
	if !OrderSideSellShort.IsSell() {
		t.Error("sell_short must be a sell side")
	}
}
