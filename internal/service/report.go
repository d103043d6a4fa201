package service

import (
	"time"

	"github.com/raulikeda/EventBacktesting/internal/domain"
	"github.com/raulikeda/EventBacktesting/internal/engine"
	"github.com/raulikeda/EventBacktesting/internal/ledger"
	"github.com/raulikeda/EventBacktesting/internal/store"
)

// BookSnapshot is the read-only state of one instrument's book after (or
// during) a run.
type BookSnapshot struct {
	Symbol        string
	Bid           *domain.Quote // nil before the first bid
	Ask           *domain.Quote // nil before the first ask
	PendingOrders int
	LastTrade     *engine.TapeEntry // nil before the first print
	TapeLength    int
	UpdatedAt     time.Time
}

// ReportService answers the read-side queries over a finished or running
// backtest: summaries, archived trades, book snapshots and order lookups.
type ReportService struct {
	backtest *BacktestService
	engine   *engine.Engine
	orders   *store.OrderStore
	trades   *store.TradeStore
}

// NewReportService creates a ReportService over the run owned by backtest.
func NewReportService(
	backtest *BacktestService,
	eng *engine.Engine,
	orders *store.OrderStore,
	trades *store.TradeStore,
) *ReportService {
	return &ReportService{
		backtest: backtest,
		engine:   eng,
		orders:   orders,
		trades:   trades,
	}
}

// GetSummary returns the strategy's performance report.
func (s *ReportService) GetSummary(strategyID string) (*ledger.Summary, error) {
	return s.backtest.Summary(strategyID)
}

// ListTrades returns the strategy's archived round-trip trades in closing
// order.
func (s *ReportService) ListTrades(strategyID string) ([]*domain.TradeEntry, error) {
	if !s.backtest.HasStrategy(strategyID) {
		return nil, domain.ErrStrategyNotFound
	}
	return s.trades.ListByStrategy(strategyID), nil
}

// GetBook returns a snapshot of the instrument's book.
func (s *ReportService) GetBook(symbol string) (*BookSnapshot, error) {
	book, err := s.engine.Book(symbol)
	if err != nil {
		return nil, err
	}

	snap := &BookSnapshot{
		Symbol:        book.Instrument(),
		PendingOrders: book.PendingCount(),
		UpdatedAt:     book.UpdatedAt(),
	}
	if bid, ok := book.Bid(); ok {
		snap.Bid = &bid
	}
	if ask, ok := book.Ask(); ok {
		snap.Ask = &ask
	}
	tape := book.Tape()
	snap.TapeLength = len(tape)
	if len(tape) > 0 {
		last := tape[len(tape)-1]
		snap.LastTrade = &last
	}
	return snap, nil
}

// GetOrder returns an order by id.
func (s *ReportService) GetOrder(id int64) (*domain.Order, error) {
	return s.orders.Get(id)
}
