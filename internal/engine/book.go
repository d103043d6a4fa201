package engine

import (
	"time"

	"github.com/google/btree"

	"github.com/raulikeda/EventBacktesting/internal/domain"
)

// TapeEntry is one append-only execution print on the book's trade tape.
type TapeEntry struct {
	Price     int64
	Quantity  int64
	Timestamp time.Time
}

// restingEntry indexes a pending order by price for range scans.
type restingEntry struct {
	Price int64
	ID    int64
	Order *domain.Order
}

// restingLess orders entries by price ascending, then id ascending, so
// range scans over a candle's [low, high] walk qualifying orders in a
// deterministic price-then-age order.
func restingLess(a, b restingEntry) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.ID < b.ID
}

// Book holds the per-instrument matching state: the last-update timestamp,
// the trade tape, one best quote per side and the pending order set. Pending
// orders are indexed both by id and by price per side using B-trees.
//
// The book is mutated only by the single-threaded replay; the report surface
// reads it after the run completes, so no locking is needed here.
type Book struct {
	instrument string
	updatedAt  time.Time

	tape []TapeEntry

	bid *domain.Quote
	ask *domain.Quote

	pending map[int64]*domain.Order
	buys    *btree.BTreeG[restingEntry]
	sells   *btree.BTreeG[restingEntry]
}

// NewBook creates an empty book for the instrument.
func NewBook(instrument string) *Book {
	const degree = 32
	return &Book{
		instrument: instrument,
		pending:    make(map[int64]*domain.Order),
		buys:       btree.NewG[restingEntry](degree, restingLess),
		sells:      btree.NewG[restingEntry](degree, restingLess),
	}
}

// Instrument returns the book's instrument symbol.
func (b *Book) Instrument() string {
	return b.instrument
}

// UpdatedAt returns the timestamp of the last market data update.
func (b *Book) UpdatedAt() time.Time {
	return b.updatedAt
}

// SetQuote replaces the single quote on the given side and reports whether
// the book actually changed. Replaying an identical quote is a no-op, which
// keeps quote-driven matching idempotent across duplicate deliveries.
func (b *Book) SetQuote(side domain.QuoteSide, q domain.Quote, ts time.Time) bool {
	b.updatedAt = ts
	target := &b.bid
	if side == domain.QuoteSideAsk {
		target = &b.ask
	}
	if *target != nil && **target == q {
		return false
	}
	cp := q
	*target = &cp
	return true
}

// Bid returns the current bid quote, if any.
func (b *Book) Bid() (domain.Quote, bool) {
	if b.bid == nil {
		return domain.Quote{}, false
	}
	return *b.bid, true
}

// Ask returns the current ask quote, if any.
func (b *Book) Ask() (domain.Quote, bool) {
	if b.ask == nil {
		return domain.Quote{}, false
	}
	return *b.ask, true
}

// AppendTape records an execution print.
func (b *Book) AppendTape(price, quantity int64, ts time.Time) {
	b.updatedAt = ts
	b.tape = append(b.tape, TapeEntry{Price: price, Quantity: quantity, Timestamp: ts})
}

// Tape returns a copy of the trade tape in append order.
func (b *Book) Tape() []TapeEntry {
	out := make([]TapeEntry, len(b.tape))
	copy(out, b.tape)
	return out
}

// Add rests an order on the book.
func (b *Book) Add(o *domain.Order) {
	b.pending[o.ID] = o
	entry := restingEntry{Price: o.Price, ID: o.ID, Order: o}
	if o.Side == domain.OrderSideBuy {
		b.buys.ReplaceOrInsert(entry)
	} else {
		b.sells.ReplaceOrInsert(entry)
	}
}

// Remove deletes a pending order by id. It is a no-op for unknown ids.
func (b *Book) Remove(id int64) {
	o, ok := b.pending[id]
	if !ok {
		return
	}
	delete(b.pending, id)
	entry := restingEntry{Price: o.Price, ID: o.ID}
	if o.Side == domain.OrderSideBuy {
		b.buys.Delete(entry)
	} else {
		b.sells.Delete(entry)
	}
}

// Pending returns a resting order by id.
func (b *Book) Pending(id int64) (*domain.Order, bool) {
	o, ok := b.pending[id]
	return o, ok
}

// PendingCount returns the number of resting orders.
func (b *Book) PendingCount() int {
	return len(b.pending)
}

// ContraResting returns the resting orders on the side contra to the given
// quote side, in (price, id) ascending order. These are the candidates for
// a quote-driven rescan: buys for an ask update, sells for a bid update.
func (b *Book) ContraResting(side domain.QuoteSide) []*domain.Order {
	tree := b.sells
	if side == domain.QuoteSideAsk {
		tree = b.buys
	}
	out := make([]*domain.Order, 0, tree.Len())
	tree.Ascend(func(e restingEntry) bool {
		out = append(out, e.Order)
		return true
	})
	return out
}

// RangeLimits returns every resting limit order whose price lies within
// [low, high], buys first, each side in (price, id) ascending order. Market
// orders (price 0) never qualify for a range fill.
func (b *Book) RangeLimits(low, high int64) []*domain.Order {
	if low < 1 {
		low = 1
	}
	var out []*domain.Order
	scan := func(e restingEntry) bool {
		out = append(out, e.Order)
		return true
	}
	b.buys.AscendRange(restingEntry{Price: low}, restingEntry{Price: high + 1}, scan)
	b.sells.AscendRange(restingEntry{Price: low}, restingEntry{Price: high + 1}, scan)
	return out
}
