package strategy

import (
	"testing"
	"time"

	"github.com/raulikeda/EventBacktesting/internal/bus"
	"github.com/raulikeda/EventBacktesting/internal/domain"
)

// stubStrategy emits a fixed intent on every candle and records the updates
// routed back to it.
type stubStrategy struct {
	id      string
	intent  *Intent
	updates []bus.OrderUpdatePayload
}

func (s *stubStrategy) ID() string { return s.id }

func (s *stubStrategy) OnCandle(string, bus.CandlePayload, time.Time) []Intent {
	if s.intent == nil {
		return nil
	}
	return []Intent{*s.intent}
}

func (s *stubStrategy) OnOrderUpdate(u bus.OrderUpdatePayload) {
	s.updates = append(s.updates, u)
}

// intentRecorder captures published intents.
type intentRecorder struct {
	intents []bus.IntentPayload
}

func (r *intentRecorder) Receive(ev bus.Event) error {
	if p, ok := ev.Payload.(bus.IntentPayload); ok {
		r.intents = append(r.intents, p)
	}
	return nil
}

func TestAdapter_PublishesIntentsOnCandle(t *testing.T) {
	b := bus.New(0)
	stub := &stubStrategy{
		id:     "alpha",
		intent: &Intent{Side: domain.OrderSideBuy, Quantity: 10, Price: 2030},
	}
	rec := &intentRecorder{}
	b.Subscribe(rec, bus.Topic("PETR4"))
	NewAdapter(b, stub, "PETR4")

	candle := bus.CandlePayload{Close: 2030}
	if err := b.Publish(bus.Topic("PETR4"), bus.PartitionCandle, candle, time.Now()); err != nil {
		t.Fatalf("publish candle: %v", err)
	}

	if len(rec.intents) != 1 {
		t.Fatalf("expected 1 intent, got %d", len(rec.intents))
	}
	intent := rec.intents[0]
	if intent.Owner != "alpha" || intent.Side != domain.OrderSideBuy || intent.Quantity != 10 || intent.Price != 2030 {
		t.Errorf("unexpected intent: %+v", intent)
	}
}

func TestAdapter_RoutesOnlyOwnedUpdates(t *testing.T) {
	b := bus.New(0)
	stub := &stubStrategy{id: "alpha"}
	NewAdapter(b, stub, "PETR4")

	mine := bus.OrderUpdatePayload{ID: 1, Instrument: "PETR4", Side: domain.OrderSideBuy, Status: domain.OrderStatusNew, Owner: "alpha"}
	theirs := bus.OrderUpdatePayload{ID: 2, Instrument: "PETR4", Side: domain.OrderSideBuy, Status: domain.OrderStatusNew, Owner: "beta"}
	for _, u := range []bus.OrderUpdatePayload{mine, theirs} {
		if err := b.Publish(bus.Topic("PETR4"), u.Partition(), u, time.Now()); err != nil {
			t.Fatalf("publish update: %v", err)
		}
	}

	if len(stub.updates) != 1 {
		t.Fatalf("expected 1 routed update, got %d", len(stub.updates))
	}
	if stub.updates[0].ID != 1 {
		t.Errorf("expected own order 1, got %d", stub.updates[0].ID)
	}
}

func TestAdapter_IgnoresOtherTopics(t *testing.T) {
	b := bus.New(0)
	stub := &stubStrategy{
		id:     "alpha",
		intent: &Intent{Side: domain.OrderSideBuy, Quantity: 10},
	}
	rec := &intentRecorder{}
	b.Subscribe(rec, bus.Topic("VALE3"))
	NewAdapter(b, stub, "PETR4")

	candle := bus.CandlePayload{Close: 6100}
	if err := b.Publish(bus.Topic("VALE3"), bus.PartitionCandle, candle, time.Now()); err != nil {
		t.Fatalf("publish candle: %v", err)
	}
	if len(rec.intents) != 0 {
		t.Errorf("expected no intent for an unsubscribed topic, got %d", len(rec.intents))
	}
}
