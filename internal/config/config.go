package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the backtester.
type Config struct {
	Port     int
	LogLevel string

	// Fee and tax assumptions. Rates are fractions of the traded dollar
	// flow; OrderFee is a flat dollar amount per order.
	OrderFee      float64
	FlowFeeRate   float64
	BuyTaxRate    float64
	SellTaxRate   float64
	ProfitTaxRate float64

	// Capital assumptions. RiskFreeRate is percent per year.
	InitialCapital float64
	RiskFreeRate   float64
	Leverage       float64
	Margin         float64

	MaxDispatchDepth int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	orderFee, err := getFloat("ORDER_FEE", 0.10)
	if err != nil {
		return nil, fmt.Errorf("invalid ORDER_FEE: %w", err)
	}
	if orderFee < 0 {
		return nil, fmt.Errorf("invalid ORDER_FEE: must not be negative, got %v", orderFee)
	}

	flowFeeRate, err := getRate("FLOW_FEE_RATE", 0)
	if err != nil {
		return nil, err
	}
	buyTaxRate, err := getRate("BUY_TAX_RATE", 0)
	if err != nil {
		return nil, err
	}
	sellTaxRate, err := getRate("SELL_TAX_RATE", 0.001)
	if err != nil {
		return nil, err
	}
	profitTaxRate, err := getRate("PROFIT_TAX_RATE", 0.149)
	if err != nil {
		return nil, err
	}

	initialCapital, err := getFloat("INITIAL_CAPITAL", 10000)
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_CAPITAL: %w", err)
	}
	if initialCapital <= 0 {
		return nil, fmt.Errorf("invalid INITIAL_CAPITAL: must be positive, got %v", initialCapital)
	}

	riskFreeRate, err := getFloat("RISK_FREE_RATE", 13.75)
	if err != nil {
		return nil, fmt.Errorf("invalid RISK_FREE_RATE: %w", err)
	}
	if riskFreeRate < 0 {
		return nil, fmt.Errorf("invalid RISK_FREE_RATE: must not be negative, got %v", riskFreeRate)
	}

	leverage, err := getFloat("LEVERAGE", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid LEVERAGE: %w", err)
	}
	if leverage <= 0 {
		return nil, fmt.Errorf("invalid LEVERAGE: must be positive, got %v", leverage)
	}

	margin, err := getFloat("MARGIN", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid MARGIN: %w", err)
	}
	if margin <= 0 || margin > 1 {
		return nil, fmt.Errorf("invalid MARGIN: must be in (0, 1], got %v", margin)
	}

	maxDispatchDepth, err := getInt("MAX_DISPATCH_DEPTH", 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_DISPATCH_DEPTH: %w", err)
	}
	if maxDispatchDepth < 1 {
		return nil, fmt.Errorf("invalid MAX_DISPATCH_DEPTH: must be at least 1, got %d", maxDispatchDepth)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:             port,
		LogLevel:         logLevel,
		OrderFee:         orderFee,
		FlowFeeRate:      flowFeeRate,
		BuyTaxRate:       buyTaxRate,
		SellTaxRate:      sellTaxRate,
		ProfitTaxRate:    profitTaxRate,
		InitialCapital:   initialCapital,
		RiskFreeRate:     riskFreeRate,
		Leverage:         leverage,
		Margin:           margin,
		MaxDispatchDepth: maxDispatchDepth,
		ReadTimeout:      readTimeout,
		WriteTimeout:     writeTimeout,
		IdleTimeout:      idleTimeout,
		ShutdownTimeout:  shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

// getRate reads a fractional rate and validates it lies in [0, 1].
func getRate(key string, defaultVal float64) (float64, error) {
	v, err := getFloat(key, defaultVal)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("invalid %s: must be in [0, 1], got %v", key, v)
	}
	return v, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
