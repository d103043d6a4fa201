package strategy

import (
	"time"

	"github.com/raulikeda/EventBacktesting/internal/bus"
	"github.com/raulikeda/EventBacktesting/internal/domain"
)

// SMACross is a moving-average crossover strategy: it buys a fixed quantity
// at market when the fast average crosses above the slow one and sells the
// position back when the fast average crosses below. Long-only; position is
// tracked from the fills routed back to it.
type SMACross struct {
	id       string
	fast     int
	slow     int
	quantity int64

	closes   map[string][]int64
	position map[string]int64
}

// NewSMACross creates the strategy. The fast window must be shorter than
// the slow one.
func NewSMACross(id string, fast, slow int, quantity int64) (*SMACross, error) {
	if id == "" {
		return nil, &domain.ValidationError{Message: "strategy id must not be empty"}
	}
	if fast <= 0 || slow <= fast {
		return nil, &domain.ValidationError{Message: "windows must satisfy 0 < fast < slow"}
	}
	if quantity <= 0 {
		return nil, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	return &SMACross{
		id:       id,
		fast:     fast,
		slow:     slow,
		quantity: quantity,
		closes:   make(map[string][]int64),
		position: make(map[string]int64),
	}, nil
}

func (s *SMACross) ID() string {
	return s.id
}

// OnCandle appends the close and emits an intent on a crossover.
func (s *SMACross) OnCandle(instrument string, candle bus.CandlePayload, _ time.Time) []Intent {
	closes := append(s.closes[instrument], candle.Close)
	s.closes[instrument] = closes
	if len(closes) <= s.slow {
		return nil
	}

	fastNow := sma(closes, s.fast, 0)
	slowNow := sma(closes, s.slow, 0)
	fastPrev := sma(closes, s.fast, 1)
	slowPrev := sma(closes, s.slow, 1)

	crossedUp := fastPrev <= slowPrev && fastNow > slowNow
	crossedDown := fastPrev >= slowPrev && fastNow < slowNow

	if crossedUp && s.position[instrument] == 0 {
		return []Intent{{Side: domain.OrderSideBuy, Quantity: s.quantity, Price: 0}}
	}
	if crossedDown && s.position[instrument] > 0 {
		return []Intent{{Side: domain.OrderSideSell, Quantity: s.position[instrument], Price: 0}}
	}
	return nil
}

// OnOrderUpdate tracks the strategy's own position from fill increments.
func (s *SMACross) OnOrderUpdate(update bus.OrderUpdatePayload) {
	if update.FilledQuantity == 0 {
		return
	}
	if update.Side.IsSell() {
		s.position[update.Instrument] -= update.FilledQuantity
	} else {
		s.position[update.Instrument] += update.FilledQuantity
	}
}

// sma averages the window ending `back` bars before the last close.
func sma(closes []int64, window, back int) float64 {
	end := len(closes) - back
	var sum int64
	for _, c := range closes[end-window : end] {
		sum += c
	}
	return float64(sum) / float64(window)
}
