package ledger

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/raulikeda/EventBacktesting/internal/bus"
	"github.com/raulikeda/EventBacktesting/internal/domain"
	"github.com/raulikeda/EventBacktesting/internal/store"
)

// tradingDaysPerYear converts the annual risk-free rate to a daily rate and
// annualizes the net return on capital.
const tradingDaysPerYear = 252

// Params are the cost, tax and capital assumptions of a run. Rates are
// fractions except RiskFreeRate, which is percent per year.
type Params struct {
	OrderFee       float64 // flat fee per distinct order, dollars
	FlowFeeRate    float64 // fee per traded dollar
	BuyTaxRate     float64 // tax per bought dollar
	SellTaxRate    float64 // tax per sold dollar
	ProfitTaxRate  float64 // tax on positive round-trip PnL
	InitialCapital float64 // dollars
	RiskFreeRate   float64 // percent per year
	Leverage       float64
	Margin         float64 // fraction of allocation required as cash
}

// dayMark is one calendar day of the replay. Equity and carry are filled
// when the run is closed out.
type dayMark struct {
	Equity float64
	Carry  float64
}

// Ledger is the risk and position ledger: it gates strategy intents,
// consumes order lifecycle events into positions and round-trip trade
// entries, and keeps the capital curve. It subscribes to every instrument
// topic alongside the matching engine.
type Ledger struct {
	bus    *bus.Bus
	trades *store.TradeStore
	params Params
	logger *slog.Logger

	positions map[string]map[string]int64 // instrument → owner → signed qty
	current   map[string]*domain.TradeEntry

	last    map[string]domain.Bar // instrument → last OHLC seen
	days    map[string]*dayMark   // calendar date → mark
	lastDay string

	capital float64
}

// New creates a ledger with the given cost assumptions, archiving closed
// entries into trades.
func New(b *bus.Bus, trades *store.TradeStore, params Params, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		bus:       b,
		trades:    trades,
		params:    params,
		logger:    logger,
		positions: make(map[string]map[string]int64),
		current:   make(map[string]*domain.TradeEntry),
		last:      make(map[string]domain.Bar),
		days:      make(map[string]*dayMark),
		capital:   params.InitialCapital,
	}
}

// Capital returns the current capital balance in dollars. It advances only
// when a round-trip trade closes.
func (l *Ledger) Capital() float64 {
	return l.capital
}

// Position returns the aggregate position of an owner on an instrument.
func (l *Ledger) Position(instrument, owner string) int64 {
	return l.positions[instrument][owner]
}

// Receive dispatches bus events: the load manifest initializes position
// tracking, candles drive mark-to-market extremes and the day calendar,
// intents are risk-gated, and fills feed the trade aggregation.
func (l *Ledger) Receive(ev bus.Event) error {
	switch p := ev.Payload.(type) {
	case bus.LoadPayload:
		for _, src := range p.Instruments {
			if l.positions[src.Symbol] == nil {
				l.positions[src.Symbol] = make(map[string]int64)
			}
		}
		return nil
	case bus.CandlePayload:
		l.onCandle(string(ev.Topic), p, ev.Timestamp)
		return nil
	case bus.IntentPayload:
		return l.onIntent(string(ev.Topic), p, ev.Timestamp)
	case bus.OrderUpdatePayload:
		if ev.Partition == bus.PartitionPartial || ev.Partition == bus.PartitionFilled {
			return l.onFill(p, ev.Timestamp)
		}
		return nil
	default:
		return nil
	}
}

// onIntent validates a strategy intent. Sell-short requests are rejected
// unless the owner's aggregate position on the instrument is exactly zero;
// the rejection is an event back to the owner, not an error, and the
// simulation continues unaffected. Accepted intents are forwarded to the
// matching engine as order requests.
func (l *Ledger) onIntent(instrument string, p bus.IntentPayload, ts time.Time) error {
	if l.positions[instrument] == nil {
		l.positions[instrument] = make(map[string]int64)
	}
	if p.Side == domain.OrderSideSellShort && l.positions[instrument][p.Owner] != 0 {
		l.logger.Debug("sell-short rejected on non-flat position",
			slog.String("instrument", instrument),
			slog.String("owner", p.Owner),
			slog.Int64("position", l.positions[instrument][p.Owner]),
		)
		rejected := bus.OrderUpdatePayload{
			Instrument: instrument,
			Side:       p.Side,
			Status:     domain.OrderStatusRejected,
			Quantity:   p.Quantity,
			Price:      p.Price,
			Owner:      p.Owner,
			Timestamp:  ts,
		}
		return l.bus.Publish(bus.Topic(instrument), bus.PartitionRejected, rejected, ts)
	}

	request := bus.OrderRequestPayload{
		Owner:    p.Owner,
		Side:     p.Side,
		Quantity: p.Quantity,
		Price:    p.Price,
	}
	return l.bus.Publish(bus.Topic(instrument), bus.PartitionOrder, request, ts)
}

// onFill aggregates a fill increment into the owner's position and current
// trade entry, charging fees and taxes on the traded flow. The entry closes
// the moment every tracked position returns to zero.
func (l *Ledger) onFill(p bus.OrderUpdatePayload, ts time.Time) error {
	if p.FilledQuantity <= 0 || p.FilledPrice <= 0 {
		return nil
	}

	signed := p.FilledQuantity
	if p.Side.IsSell() {
		signed = -signed
	}
	if l.positions[p.Instrument] == nil {
		l.positions[p.Instrument] = make(map[string]int64)
	}
	l.positions[p.Instrument][p.Owner] += signed

	entry := l.entry(p.Owner)
	if !entry.Active() {
		entry.OpenedAt = ts
	}
	entry.Position[p.Instrument] += signed
	entry.Fills++

	// One trade may contain n orders; the flat fee is charged once per order.
	if !entry.Orders[p.ID] {
		entry.Orders[p.ID] = true
		entry.Fee += l.params.OrderFee
	}

	value := domain.CentsToDollars(p.FilledPrice) * float64(p.FilledQuantity)
	if p.Side.IsSell() {
		entry.SellFlow += value * l.params.Leverage
		entry.Fee += l.params.FlowFeeRate * value
		entry.Tax += l.params.SellTaxRate * value
	} else {
		entry.BuyFlow -= value * l.params.Leverage
		entry.Fee += l.params.FlowFeeRate * value
		entry.Tax += l.params.BuyTaxRate * value
	}
	entry.UpdateAlloc()

	if entry.Flat() {
		l.closeEntry(entry, ts)
	}
	return nil
}

// closeEntry realizes the round trip: PnL is the sum of the signed cash
// flows, profitable trades pay the profit tax, the capital balance advances
// by the net result, and a fresh empty entry begins immediately.
func (l *Ledger) closeEntry(entry *domain.TradeEntry, ts time.Time) {
	entry.PnL = entry.BuyFlow + entry.SellFlow
	if entry.PnL > 0 {
		entry.Tax += l.params.ProfitTaxRate * entry.PnL
	}
	l.capital += entry.PnL - entry.Tax - entry.Fee
	if entry.MaxAlloc > 0 {
		entry.Return = entry.PnL / entry.MaxAlloc
		entry.NetReturn = (entry.PnL - entry.Fee - entry.Tax) / entry.MaxAlloc
	}
	entry.ClosedAt = ts

	l.logger.Info("trade closed",
		slog.String("strategy", entry.Strategy),
		slog.String("trade_id", entry.TradeID),
		slog.Float64("pnl", entry.PnL),
		slog.Float64("fee", entry.Fee),
		slog.Float64("tax", entry.Tax),
		slog.Float64("capital", l.capital),
	)

	l.trades.Append(entry)
	l.current[entry.Strategy] = domain.NewTradeEntry(entry.Strategy)
}

// onCandle tracks last prices and the day calendar, and updates the open
// entries' intrabar profit/drawdown extremes from close and high/low marks.
func (l *Ledger) onCandle(instrument string, c bus.CandlePayload, ts time.Time) {
	l.last[instrument] = domain.Bar{
		Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Volume: c.Volume,
	}
	day := ts.Format("2006-01-02")
	if _, ok := l.days[day]; !ok {
		l.days[day] = &dayMark{}
	}
	l.lastDay = day

	closes := make(map[string]int64, len(l.last))
	highs := make(map[string]int64, len(l.last))
	lows := make(map[string]int64, len(l.last))
	for symbol, bar := range l.last {
		closes[symbol] = bar.Close
		highs[symbol] = bar.High
		lows[symbol] = bar.Low
	}

	for _, entry := range l.current {
		if entry.Flat() {
			continue
		}
		if mtm := entry.MarkToMarket(closes, l.params.Leverage); mtm > entry.MaxProfitClose {
			entry.MaxProfitClose = mtm
		} else if mtm < entry.MaxDrawdownClose {
			entry.MaxDrawdownClose = mtm
		}
		if mtm := entry.MarkToMarket(highs, l.params.Leverage); mtm > entry.MaxProfitHigh {
			entry.MaxProfitHigh = mtm
		}
		if mtm := entry.MarkToMarket(lows, l.params.Leverage); mtm < entry.MaxDrawdownLow {
			entry.MaxDrawdownLow = mtm
		}
	}
}

// Close flattens the strategy's remaining positions with opposing market
// orders, then finalizes the last day's mark-to-market equity and accrues
// the risk-free carry on capital not allocated to the peak position.
func (l *Ledger) Close(strategy string, ts time.Time) error {
	entry := l.entry(strategy)

	instruments := make([]string, 0, len(entry.Position))
	for instrument := range entry.Position {
		instruments = append(instruments, instrument)
	}
	sort.Strings(instruments)

	for _, instrument := range instruments {
		pos := entry.Position[instrument]
		if pos == 0 {
			continue
		}
		side := domain.OrderSideSell
		qty := pos
		if pos < 0 {
			side = domain.OrderSideBuy
			qty = -pos
		}
		request := bus.OrderRequestPayload{Owner: strategy, Side: side, Quantity: qty, Price: 0}
		if err := l.bus.Publish(bus.Topic(instrument), bus.PartitionOrder, request, ts); err != nil {
			return err
		}
	}

	// The flattening fills above may have archived the entry; re-read it.
	entry = l.entry(strategy)

	if l.lastDay != "" {
		closes := make(map[string]int64, len(l.last))
		for symbol, bar := range l.last {
			closes[symbol] = bar.Close
		}
		mark := l.days[l.lastDay]
		mark.Equity = l.capital + entry.MarkToMarket(closes, l.params.Leverage)
		mark.Carry = (l.capital - entry.MaxAlloc) * l.dailyRate()
	}
	return nil
}

// entry returns the strategy's current trade entry, creating the initial
// empty one on first sight.
func (l *Ledger) entry(strategy string) *domain.TradeEntry {
	entry, ok := l.current[strategy]
	if !ok {
		entry = domain.NewTradeEntry(strategy)
		l.current[strategy] = entry
	}
	return entry
}

// dailyRate converts the annual risk-free rate (percent) to a
// per-trading-day rate.
func (l *Ledger) dailyRate() float64 {
	return math.Pow(1+l.params.RiskFreeRate/100, 1.0/tradingDaysPerYear) - 1
}
