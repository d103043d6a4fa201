package domain

// QuoteSide distinguishes the bid and ask sides of the book.
type QuoteSide string

const (
	QuoteSideBid QuoteSide = "bid"
	QuoteSideAsk QuoteSide = "ask"
)

// Quote is a synthetic top-of-book entry for one side: a price and the
// quantity available at it. Quantity 0 signals unlimited synthetic
// liquidity, used for candle-derived quotes. At most one quote per side
// is ever retained — no depth beyond best price.
type Quote struct {
	Price    int64 // cents
	Quantity int64
}

// Unlimited reports whether the quote absorbs any remaining order quantity.
func (q Quote) Unlimited() bool {
	return q.Quantity == 0
}
