package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/raulikeda/EventBacktesting/internal/bus"
	"github.com/raulikeda/EventBacktesting/internal/config"
	"github.com/raulikeda/EventBacktesting/internal/domain"
	"github.com/raulikeda/EventBacktesting/internal/engine"
	"github.com/raulikeda/EventBacktesting/internal/handler"
	"github.com/raulikeda/EventBacktesting/internal/ledger"
	"github.com/raulikeda/EventBacktesting/internal/loader"
	"github.com/raulikeda/EventBacktesting/internal/service"
	"github.com/raulikeda/EventBacktesting/internal/store"
	"github.com/raulikeda/EventBacktesting/internal/strategy"
)

// feedList collects repeated -feed flags of the form SYMBOL,SOURCE,TYPE,FILE.
type feedList []bus.InstrumentSource

func (f *feedList) String() string {
	parts := make([]string, len(*f))
	for i, src := range *f {
		parts[i] = fmt.Sprintf("%s,%s,%s,%s", src.Symbol, src.Source, src.Type, src.File)
	}
	return strings.Join(parts, " ")
}

func (f *feedList) Set(value string) error {
	parts := strings.SplitN(value, ",", 4)
	if len(parts) != 4 {
		return fmt.Errorf("feed must be SYMBOL,SOURCE,TYPE,FILE, got %q", value)
	}
	*f = append(*f, bus.InstrumentSource{
		Symbol: strings.ToUpper(strings.TrimSpace(parts[0])),
		Source: strings.ToUpper(strings.TrimSpace(parts[1])),
		Type:   strings.ToUpper(strings.TrimSpace(parts[2])),
		File:   strings.TrimSpace(parts[3]),
	})
	return nil
}

func main() {
	var feeds feedList
	flag.Var(&feeds, "feed", "Feed file as SYMBOL,SOURCE,TYPE,FILE (repeatable)")
	strategyID := flag.String("strategy", "sma-cross", "Strategy id for the report")
	fast := flag.Int("fast", 5, "Fast moving average window")
	slow := flag.Int("slow", 21, "Slow moving average window")
	quantity := flag.Int64("quantity", 100, "Order quantity per entry")
	serve := flag.Bool("serve", false, "Keep the report HTTP server running after the run")
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if len(feeds) == 0 {
		logger.Error("no feed files given, use -feed SYMBOL,SOURCE,TYPE,FILE")
		os.Exit(1)
	}

	// Instantiate stores.
	orderStore := store.NewOrderStore()
	tradeStore := store.NewTradeStore()

	// Domain.
	registry := domain.NewInstrumentRegistry()

	// Pipeline: bus, engine, ledger, loader.
	b := bus.New(cfg.MaxDispatchDepth)
	eng := engine.New(b, orderStore, logger)
	led := ledger.New(b, tradeStore, ledger.Params{
		OrderFee:       cfg.OrderFee,
		FlowFeeRate:    cfg.FlowFeeRate,
		BuyTaxRate:     cfg.BuyTaxRate,
		SellTaxRate:    cfg.SellTaxRate,
		ProfitTaxRate:  cfg.ProfitTaxRate,
		InitialCapital: cfg.InitialCapital,
		RiskFreeRate:   cfg.RiskFreeRate,
		Leverage:       cfg.Leverage,
		Margin:         cfg.Margin,
	}, logger)
	ld := loader.New(b, logger)

	// Services.
	backtestSvc := service.NewBacktestService(b, eng, led, ld, registry, logger)

	sma, err := strategy.NewSMACross(*strategyID, *fast, *slow, *quantity)
	if err != nil {
		logger.Error("invalid strategy parameters", slog.String("error", err.Error()))
		os.Exit(1)
	}
	instruments := make([]string, 0, len(feeds))
	seen := make(map[string]bool)
	for _, src := range feeds {
		if !seen[src.Symbol] {
			seen[src.Symbol] = true
			instruments = append(instruments, src.Symbol)
		}
	}
	if err := backtestSvc.RegisterStrategy(sma, instruments...); err != nil {
		logger.Error("failed to register strategy", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Run the backtest; the replay is synchronous.
	if err := backtestSvc.Run(feeds); err != nil {
		logger.Error("backtest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := backtestSvc.CloseAll(); err != nil {
		logger.Error("failed to close positions", slog.String("error", err.Error()))
		os.Exit(1)
	}

	summary, err := backtestSvc.Summary(*strategyID)
	if err != nil {
		logger.Error("failed to build summary", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Print(summary.String())

	if !*serve {
		return
	}

	// Report surface.
	reportSvc := service.NewReportService(backtestSvc, eng, orderStore, tradeStore)
	router := handler.NewRouter(reportSvc, logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("report server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
