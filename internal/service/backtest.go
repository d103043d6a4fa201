package service

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/raulikeda/EventBacktesting/internal/bus"
	"github.com/raulikeda/EventBacktesting/internal/domain"
	"github.com/raulikeda/EventBacktesting/internal/engine"
	"github.com/raulikeda/EventBacktesting/internal/ledger"
	"github.com/raulikeda/EventBacktesting/internal/loader"
	"github.com/raulikeda/EventBacktesting/internal/strategy"
)

// registration pairs a strategy with the instruments it trades.
type registration struct {
	strategy    strategy.Strategy
	instruments []string
}

// BacktestService wires the replay pipeline together and drives a run: it
// owns the subscription order on each topic and turns a feed manifest into
// LOAD and RUN events on the SYSTEM topic.
type BacktestService struct {
	bus      *bus.Bus
	engine   *engine.Engine
	ledger   *ledger.Ledger
	loader   *loader.Loader
	registry *domain.InstrumentRegistry
	logger   *slog.Logger

	registrations map[string]*registration
	subscribed    map[string]bool
}

// NewBacktestService creates the service and subscribes the loader, engine
// and ledger to the SYSTEM topic, in that order.
func NewBacktestService(
	b *bus.Bus,
	eng *engine.Engine,
	led *ledger.Ledger,
	ld *loader.Loader,
	registry *domain.InstrumentRegistry,
	logger *slog.Logger,
) *BacktestService {
	if logger == nil {
		logger = slog.Default()
	}
	b.Subscribe(ld, bus.TopicSystem)
	b.Subscribe(eng, bus.TopicSystem)
	b.Subscribe(led, bus.TopicSystem)
	return &BacktestService{
		bus:           b,
		engine:        eng,
		ledger:        led,
		loader:        ld,
		registry:      registry,
		logger:        logger,
		registrations: make(map[string]*registration),
		subscribed:    make(map[string]bool),
	}
}

// RegisterStrategy records a strategy and the instruments it trades. The
// actual bus wiring is deferred to Run so that on every instrument topic the
// engine and ledger are subscribed ahead of any strategy adapter.
func (s *BacktestService) RegisterStrategy(st strategy.Strategy, instruments ...string) error {
	if _, ok := s.registrations[st.ID()]; ok {
		return &domain.ValidationError{
			Message: fmt.Sprintf("strategy %q is already registered", st.ID()),
		}
	}
	if len(instruments) == 0 {
		return &domain.ValidationError{
			Message: fmt.Sprintf("strategy %q must trade at least one instrument", st.ID()),
		}
	}
	for _, instrument := range instruments {
		if !domain.ValidInstrument(instrument) {
			return &domain.ValidationError{
				Message: fmt.Sprintf("instrument must match ^[A-Z0-9]{1,12}$, got %q", instrument),
			}
		}
	}
	s.registrations[st.ID()] = &registration{strategy: st, instruments: instruments}
	return nil
}

// Run executes a full backtest over the manifest: it registers the
// instruments, wires every topic (engine, then ledger, then strategy
// adapters), publishes the LOAD manifest and fires RUN. The replay is
// synchronous, so Run returns only after every staged event has been
// dispatched through the whole pipeline.
func (s *BacktestService) Run(manifest []bus.InstrumentSource) error {
	if len(manifest) == 0 {
		return &domain.ValidationError{Message: "manifest must name at least one feed file"}
	}

	for _, src := range manifest {
		if s.subscribed[src.Symbol] {
			continue
		}
		s.registry.Register(src.Symbol)
		s.bus.Subscribe(s.engine, bus.Topic(src.Symbol))
		s.bus.Subscribe(s.ledger, bus.Topic(src.Symbol))
		s.subscribed[src.Symbol] = true
	}

	for _, id := range s.StrategyIDs() {
		reg := s.registrations[id]
		for _, instrument := range reg.instruments {
			if !s.subscribed[instrument] {
				return &domain.ValidationError{
					Message: fmt.Sprintf("strategy %q trades %s, which is not in the manifest", id, instrument),
				}
			}
		}
		strategy.NewAdapter(s.bus, reg.strategy, reg.instruments...)
	}

	start := time.Now()
	load := bus.LoadPayload{Instruments: manifest}
	if err := s.bus.Publish(bus.TopicSystem, bus.PartitionLoad, load, start); err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	if err := s.bus.Publish(bus.TopicSystem, bus.PartitionRun, bus.RunPayload{}, start); err != nil {
		return fmt.Errorf("run replay: %w", err)
	}

	s.logger.Info("backtest finished",
		slog.Int("instruments", len(s.subscribed)),
		slog.Int("strategies", len(s.registrations)),
		slog.Int("skipped_rows", s.loader.Skipped()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// CloseAll flattens every registered strategy's open positions at the last
// replayed market timestamp and finalizes the ledger's closing day marks.
func (s *BacktestService) CloseAll() error {
	ts := s.lastMarketTime()
	for _, id := range s.StrategyIDs() {
		if err := s.ledger.Close(id, ts); err != nil {
			return fmt.Errorf("close strategy %s: %w", id, err)
		}
	}
	return nil
}

// Summary returns the performance report for a registered strategy.
func (s *BacktestService) Summary(strategyID string) (*ledger.Summary, error) {
	if _, ok := s.registrations[strategyID]; !ok {
		return nil, domain.ErrStrategyNotFound
	}
	return s.ledger.Summary(strategyID), nil
}

// HasStrategy reports whether the strategy id is registered.
func (s *BacktestService) HasStrategy(strategyID string) bool {
	_, ok := s.registrations[strategyID]
	return ok
}

// StrategyIDs returns the registered strategy ids in sorted order.
func (s *BacktestService) StrategyIDs() []string {
	ids := make([]string, 0, len(s.registrations))
	for id := range s.registrations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// lastMarketTime is the latest book update across the run's instruments,
// used as the timestamp for end-of-run flattening orders.
func (s *BacktestService) lastMarketTime() time.Time {
	var last time.Time
	for symbol := range s.subscribed {
		book, err := s.engine.Book(symbol)
		if err != nil {
			continue
		}
		if book.UpdatedAt().After(last) {
			last = book.UpdatedAt()
		}
	}
	if last.IsZero() {
		last = time.Now()
	}
	return last
}
