package strategy

import (
	"time"

	"github.com/raulikeda/EventBacktesting/internal/bus"
	"github.com/raulikeda/EventBacktesting/internal/domain"
)

// Intent is a strategy's request to trade, before risk gating.
type Intent struct {
	Side     domain.OrderSide
	Quantity int64
	Price    int64 // cents, 0 for market
}

// Strategy reacts to market data and to the lifecycle of its own orders.
// Implementations hold their own state; they are driven synchronously by
// the replay, one event at a time.
type Strategy interface {
	ID() string
	OnCandle(instrument string, candle bus.CandlePayload, ts time.Time) []Intent
	OnOrderUpdate(update bus.OrderUpdatePayload)
}

// Adapter subscribes a Strategy to instrument topics, publishes its intents
// and routes back only the lifecycle events it owns.
type Adapter struct {
	bus      *bus.Bus
	strategy Strategy
}

// NewAdapter wires the strategy onto the bus for the given instruments.
func NewAdapter(b *bus.Bus, s Strategy, instruments ...string) *Adapter {
	a := &Adapter{bus: b, strategy: s}
	for _, instrument := range instruments {
		b.Subscribe(a, bus.Topic(instrument))
	}
	return a
}

// Receive forwards candles to the strategy and publishes any resulting
// intents on the instrument's topic before returning.
func (a *Adapter) Receive(ev bus.Event) error {
	switch p := ev.Payload.(type) {
	case bus.CandlePayload:
		for _, intent := range a.strategy.OnCandle(string(ev.Topic), p, ev.Timestamp) {
			payload := bus.IntentPayload{
				Owner:    a.strategy.ID(),
				Side:     intent.Side,
				Quantity: intent.Quantity,
				Price:    intent.Price,
			}
			if err := a.bus.Publish(ev.Topic, bus.PartitionIntent, payload, ev.Timestamp); err != nil {
				return err
			}
		}
		return nil
	case bus.OrderUpdatePayload:
		if p.Owner == a.strategy.ID() {
			a.strategy.OnOrderUpdate(p)
		}
		return nil
	default:
		return nil
	}
}
