package bus

import (
	"errors"
	"testing"
	"time"
)

// recorder collects every event it receives, optionally failing or
// republishing to exercise nested dispatch.
type recorder struct {
	name   string
	events []Event
	err    error
	onRecv func(Event) error
}

func (r *recorder) Receive(ev Event) error {
	r.events = append(r.events, ev)
	if r.err != nil {
		return r.err
	}
	if r.onRecv != nil {
		return r.onRecv(ev)
	}
	return nil
}

func TestPublish_DeliversInSubscriptionOrder(t *testing.T) {
	b := New(0)
	var order []string
	first := &recorder{name: "first"}
	second := &recorder{name: "second"}
	first.onRecv = func(Event) error { order = append(order, "first"); return nil }
	second.onRecv = func(Event) error { order = append(order, "second"); return nil }

	b.Subscribe(first, Topic("PETR4"))
	b.Subscribe(second, Topic("PETR4"))

	err := b.Publish(Topic("PETR4"), PartitionTrade, TapePayload{Price: 2031, Quantity: 5}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("expected delivery in subscription order, got %v", order)
	}
}

func TestPublish_TopicIsolation(t *testing.T) {
	b := New(0)
	petr := &recorder{}
	vale := &recorder{}
	b.Subscribe(petr, Topic("PETR4"))
	b.Subscribe(vale, Topic("VALE3"))

	if err := b.Publish(Topic("PETR4"), PartitionTrade, TapePayload{Price: 1, Quantity: 1}, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(petr.events) != 1 {
		t.Errorf("expected 1 event on PETR4 subscriber, got %d", len(petr.events))
	}
	if len(vale.events) != 0 {
		t.Errorf("expected 0 events on VALE3 subscriber, got %d", len(vale.events))
	}
}

func TestPublish_NilPayload(t *testing.T) {
	b := New(0)
	if err := b.Publish(TopicSystem, PartitionRun, nil, time.Now()); !errors.Is(err, ErrNilPayload) {
		t.Fatalf("expected ErrNilPayload, got %v", err)
	}
}

func TestPublish_PartitionMismatch(t *testing.T) {
	b := New(0)
	err := b.Publish(Topic("PETR4"), PartitionCandle, TapePayload{Price: 1, Quantity: 1}, time.Now())
	if !errors.Is(err, ErrPartitionMismatch) {
		t.Fatalf("expected ErrPartitionMismatch, got %v", err)
	}
}

func TestPublish_NestedDispatchCompletesBeforeReturn(t *testing.T) {
	b := New(0)
	var order []string
	inner := &recorder{}
	inner.onRecv = func(Event) error { order = append(order, "inner"); return nil }
	outer := &recorder{}
	outer.onRecv = func(ev Event) error {
		if ev.Partition == PartitionTrade {
			// Republish as a candle; the nested delivery must finish first.
			err := b.Publish(ev.Topic, PartitionCandle, CandlePayload{Close: 1}, ev.Timestamp)
			order = append(order, "outer-after-nested")
			return err
		}
		return nil
	}

	b.Subscribe(outer, Topic("PETR4"))
	b.Subscribe(inner, Topic("PETR4"))

	err := b.Publish(Topic("PETR4"), PartitionTrade, TapePayload{Price: 1, Quantity: 1}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) < 2 || order[0] != "inner" || order[1] != "outer-after-nested" {
		t.Errorf("expected nested delivery before outer handler returns, got %v", order)
	}
}

func TestPublish_DepthBound(t *testing.T) {
	b := New(3)
	sub := &recorder{}
	sub.onRecv = func(ev Event) error {
		// Republish forever; the depth bound must stop the recursion.
		return b.Publish(ev.Topic, PartitionTrade, TapePayload{Price: 1, Quantity: 1}, ev.Timestamp)
	}
	b.Subscribe(sub, Topic("PETR4"))

	err := b.Publish(Topic("PETR4"), PartitionTrade, TapePayload{Price: 1, Quantity: 1}, time.Now())
	if !errors.Is(err, ErrDispatchDepth) {
		t.Fatalf("expected ErrDispatchDepth, got %v", err)
	}
	if len(sub.events) != 3 {
		t.Errorf("expected exactly 3 deliveries at bound 3, got %d", len(sub.events))
	}
}

func TestPublish_SubscriberErrorPropagates(t *testing.T) {
	b := New(0)
	boom := errors.New("boom")
	failing := &recorder{err: boom}
	after := &recorder{}
	b.Subscribe(failing, Topic("PETR4"))
	b.Subscribe(after, Topic("PETR4"))

	err := b.Publish(Topic("PETR4"), PartitionTrade, TapePayload{Price: 1, Quantity: 1}, time.Now())
	if !errors.Is(err, boom) {
		t.Fatalf("expected propagated subscriber error, got %v", err)
	}
	if len(after.events) != 0 {
		t.Errorf("expected delivery pass to abort, but later subscriber got %d events", len(after.events))
	}
}

func TestPublish_LoadPayloadSnapshotIsolation(t *testing.T) {
	b := New(0)
	var received LoadPayload
	sub := &recorder{}
	sub.onRecv = func(ev Event) error {
		received = ev.Payload.(LoadPayload)
		return nil
	}
	b.Subscribe(sub, TopicSystem)

	manifest := []InstrumentSource{{Symbol: "PETR4", Source: "YAHOO", Type: "HIST", File: "petr4.csv"}}
	if err := b.Publish(TopicSystem, PartitionLoad, LoadPayload{Instruments: manifest}, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mutating the publisher's slice must not leak into the delivered copy.
	manifest[0].Symbol = "MUTATED"
	if received.Instruments[0].Symbol != "PETR4" {
		t.Errorf("expected snapshot isolation, got %q", received.Instruments[0].Symbol)
	}
}

func TestQuotePayload_PartitionFollowsSide(t *testing.T) {
	bid := QuotePayload{Side: "bid", Price: 2030, Quantity: 10}
	if bid.Partition() != PartitionBestBid {
		t.Errorf("expected BEST_BID, got %s", bid.Partition())
	}
	ask := QuotePayload{Side: "ask", Price: 2031, Quantity: 10}
	if ask.Partition() != PartitionBestAsk {
		t.Errorf("expected BEST_ASK, got %s", ask.Partition())
	}
}
