package bus

import (
	"time"

	"github.com/raulikeda/EventBacktesting/internal/domain"
)

// Partition identifies the kind of payload carried on a topic.
type Partition string

const (
	PartitionLoad    Partition = "LOAD"
	PartitionRun     Partition = "RUN"
	PartitionCandle  Partition = "CANDLE"
	PartitionBestBid Partition = "BEST_BID"
	PartitionBestAsk Partition = "BEST_ASK"
	PartitionTrade   Partition = "TRADE"
	PartitionIntent  Partition = "INTENT"
	PartitionOrder   Partition = "ORDER"

	PartitionNew      Partition = "NEW"
	PartitionPartial  Partition = "PARTIAL"
	PartitionFilled   Partition = "FILLED"
	PartitionRejected Partition = "REJECTED"
	PartitionCanceled Partition = "CANCELED"
)

// Payload is the closed set of event payloads. Each partition kind carries
// exactly one statically typed payload; the unexported snapshot method both
// closes the set to this package and lets Publish hand every subscriber an
// owned copy, so no subscriber's in-place edit leaks to another's view.
type Payload interface {
	Partition() Partition
	snapshot() Payload
}

// InstrumentSource names one feed file of the load manifest.
type InstrumentSource struct {
	Symbol string
	Source string // YAHOO, BLOOMBERG or RAW
	Type   string // HIST, INTR or TICK
	File   string
}

// LoadPayload carries the instrument → feed-file manifest on SYSTEM/LOAD.
type LoadPayload struct {
	Instruments []InstrumentSource
}

func (p LoadPayload) Partition() Partition { return PartitionLoad }

func (p LoadPayload) snapshot() Payload {
	cp := make([]InstrumentSource, len(p.Instruments))
	copy(cp, p.Instruments)
	return LoadPayload{Instruments: cp}
}

// RunPayload triggers the replay on SYSTEM/RUN.
type RunPayload struct{}

func (p RunPayload) Partition() Partition { return PartitionRun }
func (p RunPayload) snapshot() Payload    { return p }

// CandlePayload is one OHLCV bar. Prices are cents.
type CandlePayload struct {
	Open   int64
	High   int64
	Low    int64
	Close  int64
	Volume int64
}

func (p CandlePayload) Partition() Partition { return PartitionCandle }
func (p CandlePayload) snapshot() Payload    { return p }

// QuotePayload replaces the single best quote on one side. The side is the
// partition (BEST_BID or BEST_ASK); quantity 0 is unlimited synthetic
// liquidity.
type QuotePayload struct {
	Side     domain.QuoteSide
	Price    int64
	Quantity int64
}

func (p QuotePayload) Partition() Partition {
	if p.Side == domain.QuoteSideBid {
		return PartitionBestBid
	}
	return PartitionBestAsk
}

func (p QuotePayload) snapshot() Payload { return p }

// TapePayload is one execution print destined for the trade tape.
type TapePayload struct {
	Price    int64
	Quantity int64
}

func (p TapePayload) Partition() Partition { return PartitionTrade }
func (p TapePayload) snapshot() Payload    { return p }

// IntentPayload is a strategy's request to trade, consumed by the risk
// ledger before any order exists.
type IntentPayload struct {
	Owner    string
	Side     domain.OrderSide
	Quantity int64
	Price    int64 // cents, 0 for market
}

func (p IntentPayload) Partition() Partition { return PartitionIntent }
func (p IntentPayload) snapshot() Payload    { return p }

// OrderRequestPayload is a risk-approved order request, consumed by the
// matching engine.
type OrderRequestPayload struct {
	Owner    string
	Side     domain.OrderSide
	Quantity int64
	Price    int64 // cents, 0 for market
}

func (p OrderRequestPayload) Partition() Partition { return PartitionOrder }
func (p OrderRequestPayload) snapshot() Payload    { return p }

// OrderUpdatePayload is a full order snapshot emitted on every lifecycle
// transition. FilledQuantity/FilledPrice describe the increment that caused
// a PARTIAL or FILLED transition and are zero otherwise. The Status field
// selects the partition.
type OrderUpdatePayload struct {
	ID         int64
	Instrument string
	Side       domain.OrderSide
	Status     domain.OrderStatus
	Quantity   int64
	Price      int64
	Executed   int64
	Average    float64
	Owner      string
	Timestamp  time.Time // order creation time

	FilledQuantity int64
	FilledPrice    int64
}

func (p OrderUpdatePayload) Partition() Partition {
	switch p.Status {
	case domain.OrderStatusPartial:
		return PartitionPartial
	case domain.OrderStatusFilled:
		return PartitionFilled
	case domain.OrderStatusRejected:
		return PartitionRejected
	case domain.OrderStatusCanceled:
		return PartitionCanceled
	default:
		return PartitionNew
	}
}

func (p OrderUpdatePayload) snapshot() Payload { return p }
