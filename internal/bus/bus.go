package bus

import (
	"errors"
	"time"
)

// Sentinel errors surfaced by Publish.
var (
	ErrNilPayload        = errors.New("nil_payload")
	ErrPartitionMismatch = errors.New("partition_mismatch")
	ErrDispatchDepth     = errors.New("dispatch_depth_exceeded")
)

// DefaultMaxDepth bounds nested publishing. Dispatch is synchronous and
// re-entrant: a handler may publish, which delivers before the handler
// returns. The bound is proportional to the number of matches a single
// injected event can trigger, so well-behaved replays stay far below it.
const DefaultMaxDepth = 64

// Topic routes events. Every instrument is a topic; TopicSystem carries
// run-control commands.
type Topic string

// TopicSystem is the control topic for LOAD and RUN commands.
const TopicSystem Topic = "SYSTEM"

// Event is the unit delivered to subscribers. The payload is an owned
// snapshot taken at publish time.
type Event struct {
	Topic     Topic
	Partition Partition
	Payload   Payload
	Timestamp time.Time
}

// Subscriber receives events for the topics it subscribed to. A non-nil
// error aborts the delivery pass and propagates to the injecting Publish.
type Subscriber interface {
	Receive(Event) error
}

// Bus is a synchronous, in-process, topic-based dispatcher. Delivery is
// FIFO in subscription order and completes before Publish returns. There
// is no persistence and no delivery guarantee beyond in-process call order.
type Bus struct {
	subs     map[Topic][]Subscriber
	depth    int
	maxDepth int
}

// New creates a bus with the given nesting bound. A bound of zero or less
// falls back to DefaultMaxDepth.
func New(maxDepth int) *Bus {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Bus{
		subs:     make(map[Topic][]Subscriber),
		maxDepth: maxDepth,
	}
}

// Subscribe registers the subscriber for the topic. A subscriber may be
// registered on any number of topics; per topic it is delivered to in the
// order subscriptions were made.
func (b *Bus) Subscribe(s Subscriber, topic Topic) {
	b.subs[topic] = append(b.subs[topic], s)
}

// Publish delivers the payload to every subscriber of the topic before
// returning. Handlers may publish from within Receive; the nesting depth is
// bounded and exceeding it returns ErrDispatchDepth to the injecting caller.
func (b *Bus) Publish(topic Topic, partition Partition, payload Payload, ts time.Time) error {
	if payload == nil {
		return ErrNilPayload
	}
	if payload.Partition() != partition {
		return ErrPartitionMismatch
	}
	if b.depth >= b.maxDepth {
		return ErrDispatchDepth
	}

	b.depth++
	defer func() { b.depth-- }()

	ev := Event{
		Topic:     topic,
		Partition: partition,
		Payload:   payload.snapshot(),
		Timestamp: ts,
	}
	for _, s := range b.subs[topic] {
		if err := s.Receive(ev); err != nil {
			return err
		}
	}
	return nil
}
