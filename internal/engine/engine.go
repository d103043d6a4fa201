package engine

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/raulikeda/EventBacktesting/internal/bus"
	"github.com/raulikeda/EventBacktesting/internal/domain"
	"github.com/raulikeda/EventBacktesting/internal/store"
)

// Engine is the matching engine: it owns one Book per loaded instrument,
// consumes market data and order requests from the bus and emits order
// lifecycle events back onto the instrument's topic.
//
// Fill price policy:
//   - an aggressive order matched at submission executes at the quote price;
//   - a resting limit order reached by a quote replacement or a candle range
//     executes at its own limit price;
//   - a resting market order executes at the quote price (it has no limit).
//
// Short-sale gating happens upstream in the risk ledger; the engine trusts
// every ORDER request it receives and never emits REJECTED.
type Engine struct {
	bus    *bus.Bus
	orders *store.OrderStore
	logger *slog.Logger

	books map[string]*Book

	// Order id allocator scoped to this engine, so multiple runs in one
	// process never share identifiers.
	nextID atomic.Int64
}

// New creates an engine publishing on b and recording every allocated order
// in orders.
func New(b *bus.Bus, orders *store.OrderStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		bus:    b,
		orders: orders,
		logger: logger,
		books:  make(map[string]*Book),
	}
}

// CreateBook ensures a book exists for the instrument.
func (e *Engine) CreateBook(instrument string) *Book {
	if book, ok := e.books[instrument]; ok {
		return book
	}
	book := NewBook(instrument)
	e.books[instrument] = book
	return book
}

// Book returns the instrument's book. It returns
// domain.ErrInstrumentNotFound for unknown instruments.
func (e *Engine) Book(instrument string) (*Book, error) {
	book, ok := e.books[instrument]
	if !ok {
		return nil, domain.ErrInstrumentNotFound
	}
	return book, nil
}

// Receive dispatches bus events: the load manifest creates books, market
// data drives matching against resting orders, and ORDER requests allocate
// and match new orders. Lifecycle and intent traffic on the same topics is
// ignored here.
func (e *Engine) Receive(ev bus.Event) error {
	switch p := ev.Payload.(type) {
	case bus.LoadPayload:
		for _, src := range p.Instruments {
			e.CreateBook(src.Symbol)
		}
		return nil
	case bus.QuotePayload:
		book, ok := e.books[string(ev.Topic)]
		if !ok {
			return nil
		}
		side := domain.QuoteSideBid
		if ev.Partition == bus.PartitionBestAsk {
			side = domain.QuoteSideAsk
		}
		return e.applyQuote(book, side, domain.Quote{Price: p.Price, Quantity: p.Quantity}, ev.Timestamp)
	case bus.CandlePayload:
		book, ok := e.books[string(ev.Topic)]
		if !ok {
			return nil
		}
		return e.applyCandle(book, p, ev.Timestamp)
	case bus.TapePayload:
		book, ok := e.books[string(ev.Topic)]
		if !ok {
			return nil
		}
		book.AppendTape(p.Price, p.Quantity, ev.Timestamp)
		return nil
	case bus.OrderRequestPayload:
		book, ok := e.books[string(ev.Topic)]
		if !ok {
			return domain.ErrInstrumentNotFound
		}
		_, err := e.Submit(book, p, ev.Timestamp)
		return err
	default:
		return nil
	}
}

// Submit allocates a new order for the request, emits its NEW snapshot and
// immediately attempts to match it against the current contra-side quote at
// the quote's price. Any unfilled remainder rests on the book.
func (e *Engine) Submit(book *Book, req bus.OrderRequestPayload, ts time.Time) (*domain.Order, error) {
	o, err := domain.NewOrder(book.instrument, req.Side, req.Quantity, req.Price, req.Owner)
	if err != nil {
		return nil, err
	}
	o.ID = e.nextID.Add(1)
	o.CreatedAt = ts
	e.orders.Create(o)

	e.logger.Debug("order submitted",
		slog.Int64("id", o.ID),
		slog.String("instrument", o.Instrument),
		slog.String("side", string(o.Side)),
		slog.Int64("quantity", o.Quantity),
		slog.Int64("price", o.Price),
		slog.String("owner", o.Owner),
	)

	// NEW must be observed by all subscribers strictly before any fill.
	if err := e.emit(o, 0, 0, ts); err != nil {
		return o, err
	}

	quote, ok := contraQuote(book, o.Side)
	if ok && crosses(o, quote) {
		qty := fillSize(o.Remaining(), quote)
		if err := e.fill(book, o, qty, quote.Price, ts); err != nil {
			return o, err
		}
	}
	if !o.Status.Terminal() {
		book.Add(o)
	}
	return o, nil
}

// applyQuote replaces one side's quote. When the book actually changed, it
// rescans the contra-side resting orders against the new quote: each either
// fills fully, partially, or not at all (a single quote level is all the
// liquidity an update can represent).
func (e *Engine) applyQuote(book *Book, side domain.QuoteSide, q domain.Quote, ts time.Time) error {
	if !book.SetQuote(side, q, ts) {
		return nil
	}
	for _, o := range book.ContraResting(side) {
		if !crosses(o, q) {
			continue
		}
		price := o.Price
		if o.Market() {
			price = q.Price
		}
		if err := e.fill(book, o, fillSize(o.Remaining(), q), price, ts); err != nil {
			return err
		}
	}
	return nil
}

// applyCandle appends the bar's close print to the tape, synthesizes
// unlimited-liquidity bid and ask quotes at the close, and fills fully — at
// the order's own limit price, never at the close — every resting limit
// order whose price lies within [low, high]. Tick data is unavailable, so
// the whole bar range is treated as reachable.
func (e *Engine) applyCandle(book *Book, c bus.CandlePayload, ts time.Time) error {
	book.AppendTape(c.Close, c.Volume, ts)

	synthetic := domain.Quote{Price: c.Close, Quantity: 0}
	book.SetQuote(domain.QuoteSideBid, synthetic, ts)
	book.SetQuote(domain.QuoteSideAsk, synthetic, ts)

	for _, o := range book.RangeLimits(c.Low, c.High) {
		if err := e.fill(book, o, o.Remaining(), o.Price, ts); err != nil {
			return err
		}
	}
	return nil
}

// fill applies a fill increment, removes completed orders from the pending
// set and emits the PARTIAL or FILLED lifecycle event.
func (e *Engine) fill(book *Book, o *domain.Order, quantity, price int64, ts time.Time) error {
	if quantity <= 0 {
		return nil
	}
	if err := o.ApplyFill(quantity, price); err != nil {
		return err
	}
	if o.Status.Terminal() {
		book.Remove(o.ID)
	}
	return e.emit(o, quantity, price, ts)
}

// emit publishes the order's current snapshot on its instrument topic.
func (e *Engine) emit(o *domain.Order, filledQty, filledPrice int64, ts time.Time) error {
	payload := bus.OrderUpdatePayload{
		ID:             o.ID,
		Instrument:     o.Instrument,
		Side:           o.Side,
		Status:         o.Status,
		Quantity:       o.Quantity,
		Price:          o.Price,
		Executed:       o.Executed,
		Average:        o.Average,
		Owner:          o.Owner,
		Timestamp:      o.CreatedAt,
		FilledQuantity: filledQty,
		FilledPrice:    filledPrice,
	}
	return e.bus.Publish(bus.Topic(o.Instrument), payload.Partition(), payload, ts)
}

// contraQuote returns the quote an order of the given side matches against.
func contraQuote(book *Book, side domain.OrderSide) (domain.Quote, bool) {
	if side == domain.OrderSideBuy {
		return book.Ask()
	}
	return book.Bid()
}

// crosses applies the matching predicate: a buy matches an offer priced at
// or below its limit, a sell matches a bid priced at or above its limit,
// and a market order (price 0) matches at any price.
func crosses(o *domain.Order, q domain.Quote) bool {
	if o.Market() {
		return true
	}
	if o.Side == domain.OrderSideBuy {
		return o.Price >= q.Price
	}
	return o.Price <= q.Price
}

// fillSize is min(remaining, quote quantity), or remaining when the quote
// carries unlimited synthetic liquidity.
func fillSize(remaining int64, q domain.Quote) int64 {
	if q.Unlimited() || q.Quantity > remaining {
		return remaining
	}
	return q.Quantity
}
