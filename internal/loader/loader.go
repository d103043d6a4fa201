package loader

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/raulikeda/EventBacktesting/internal/bus"
	"github.com/raulikeda/EventBacktesting/internal/domain"
)

// Feed sources and types understood by the loader.
const (
	SourceYahoo     = "YAHOO"
	SourceBloomberg = "BLOOMBERG"
	SourceRaw       = "RAW"

	TypeHistory  = "HIST"
	TypeIntraday = "INTR"
	TypeTick     = "TICK"
)

const (
	yahooDateLayout = "2006-01-02"
	bbgTimeLayout   = "02/01/2006 15:04:05"
)

// timedEvent is one normalized row awaiting replay.
type timedEvent struct {
	ts        time.Time
	topic     bus.Topic
	partition bus.Partition
	payload   bus.Payload
	seq       int // preserves file order among equal timestamps
}

// Loader normalizes vendor feed files into canonical market events and
// replays them in ascending timestamp order over the bus. Malformed rows
// are skipped and counted; a bad row never aborts ingestion.
type Loader struct {
	bus    *bus.Bus
	logger *slog.Logger

	events  []timedEvent
	skipped int
}

// New creates a loader publishing on b.
func New(b *bus.Bus, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{bus: b, logger: logger}
}

// Skipped returns the number of malformed rows dropped during loading.
func (l *Loader) Skipped() int {
	return l.skipped
}

// Pending returns the number of normalized events awaiting replay.
func (l *Loader) Pending() int {
	return len(l.events)
}

// Receive handles the SYSTEM topic: LOAD ingests the manifest's files and
// RUN triggers the replay.
func (l *Loader) Receive(ev bus.Event) error {
	switch p := ev.Payload.(type) {
	case bus.LoadPayload:
		for _, src := range p.Instruments {
			if err := l.Load(src); err != nil {
				return err
			}
		}
		return nil
	case bus.RunPayload:
		return l.Replay()
	default:
		return nil
	}
}

// Load ingests one feed file according to its source and type.
func (l *Loader) Load(src bus.InstrumentSource) error {
	if !domain.ValidInstrument(src.Symbol) {
		return &domain.ValidationError{
			Message: fmt.Sprintf("instrument must match ^[A-Z0-9]{1,12}$, got %q", src.Symbol),
		}
	}
	switch {
	case src.Source == SourceYahoo && src.Type == TypeHistory:
		return l.LoadYahooHistory(src.Symbol, src.File)
	case src.Source == SourceBloomberg && src.Type == TypeIntraday:
		return l.LoadBloombergIntraday(src.Symbol, src.File)
	case src.Source == SourceBloomberg && src.Type == TypeTick:
		return l.LoadBloombergTick(src.Symbol, src.File)
	default:
		return &domain.ValidationError{
			Message: fmt.Sprintf("unsupported feed %s/%s for %s", src.Source, src.Type, src.Symbol),
		}
	}
}

// LoadYahooHistory ingests a Yahoo daily history CSV: comma-separated with
// header Date,Open,High,Low,Close,Adj Close,Volume. The adjusted close is
// used as the candle close; rows with a null open are skipped.
func (l *Loader) LoadYahooHistory(symbol, path string) error {
	return l.scan(path, func(line string) bool {
		cols := strings.Split(line, ",")
		if len(cols) != 7 || cols[1] == "null" {
			return false
		}
		ts, err := time.Parse(yahooDateLayout, cols[0])
		if err != nil {
			return false
		}
		open, err1 := parsePrice(cols[1], false)
		high, err2 := parsePrice(cols[2], false)
		low, err3 := parsePrice(cols[3], false)
		adjClose, err4 := parsePrice(cols[5], false)
		volume, err5 := parseVolume(cols[6])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			return false
		}
		l.add(ts, bus.Topic(symbol), bus.CandlePayload{
			Open: open, High: high, Low: low, Close: adjClose, Volume: volume,
		})
		return true
	})
}

// LoadBloombergIntraday ingests a Bloomberg intraday CSV: semicolon-
// separated, decimal comma, columns timestamp;open;close;high;low.
func (l *Loader) LoadBloombergIntraday(symbol, path string) error {
	return l.scan(path, func(line string) bool {
		cols := strings.Split(line, ";")
		if len(cols) != 5 {
			return false
		}
		ts, err := time.Parse(bbgTimeLayout, cols[0])
		if err != nil {
			return false
		}
		open, err1 := parsePrice(cols[1], true)
		last, err2 := parsePrice(cols[2], true)
		high, err3 := parsePrice(cols[3], true)
		low, err4 := parsePrice(cols[4], true)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return false
		}
		l.add(ts, bus.Topic(symbol), bus.CandlePayload{
			Open: open, High: high, Low: low, Close: last, Volume: 0,
		})
		return true
	})
}

// LoadBloombergTick ingests a Bloomberg tick CSV: semicolon-separated,
// decimal comma, columns timestamp;type;price;quantity with type BID, ASK
// or TRD mapping to best-bid, best-ask and tape events.
func (l *Loader) LoadBloombergTick(symbol, path string) error {
	return l.scan(path, func(line string) bool {
		cols := strings.Split(line, ";")
		if len(cols) != 4 {
			return false
		}
		ts, err := time.Parse(bbgTimeLayout, cols[0])
		if err != nil {
			return false
		}
		price, err1 := parsePrice(cols[2], true)
		quantity, err2 := strconv.ParseInt(strings.TrimSpace(cols[3]), 10, 64)
		if err1 != nil || err2 != nil || price <= 0 || quantity < 0 {
			return false
		}
		switch strings.TrimSpace(cols[1]) {
		case "BID":
			l.add(ts, bus.Topic(symbol), bus.QuotePayload{
				Side: domain.QuoteSideBid, Price: price, Quantity: quantity,
			})
		case "ASK":
			l.add(ts, bus.Topic(symbol), bus.QuotePayload{
				Side: domain.QuoteSideAsk, Price: price, Quantity: quantity,
			})
		case "TRD":
			l.add(ts, bus.Topic(symbol), bus.TapePayload{Price: price, Quantity: quantity})
		default:
			return false
		}
		return true
	})
}

// Replay publishes every normalized event in ascending timestamp order,
// preserving file order among equal timestamps, then drops the staged rows.
func (l *Loader) Replay() error {
	sort.SliceStable(l.events, func(i, j int) bool {
		if !l.events[i].ts.Equal(l.events[j].ts) {
			return l.events[i].ts.Before(l.events[j].ts)
		}
		return l.events[i].seq < l.events[j].seq
	})
	l.logger.Info("replay starting",
		slog.Int("events", len(l.events)),
		slog.Int("skipped_rows", l.skipped),
	)
	for _, ev := range l.events {
		if err := l.bus.Publish(ev.topic, ev.partition, ev.payload, ev.ts); err != nil {
			return err
		}
	}
	l.events = nil
	return nil
}

// scan reads a file line by line, skipping the header row and counting
// rows the parse callback refuses.
func (l *Loader) scan(path string, parse func(line string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open feed file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if first {
			first = false
			continue
		}
		if line == "" {
			continue
		}
		if !parse(line) {
			l.skipped++
			l.logger.Debug("skipping malformed feed row", slog.String("file", path), slog.String("row", line))
		}
	}
	return scanner.Err()
}

// add stages one normalized event for replay.
func (l *Loader) add(ts time.Time, topic bus.Topic, payload bus.Payload) {
	l.events = append(l.events, timedEvent{
		ts:        ts,
		topic:     topic,
		partition: payload.Partition(),
		payload:   payload,
		seq:       len(l.events),
	})
}

// parsePrice converts a feed price to cents, optionally translating a
// decimal comma first. Vendor prices are rounded to the nearest cent.
func parsePrice(s string, decimalComma bool) (int64, error) {
	s = strings.TrimSpace(s)
	if decimalComma {
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return domain.RoundToCents(f), nil
}

// parseVolume accepts integer or float volume columns.
func parseVolume(s string) (int64, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
