package config

import (
	"os"
	"strconv"
	"testing"

	"pgregory.net/rapid"
)

// rateEnvKeys lists all Config fields parsed as fractional rates in [0, 1].
var rateEnvKeys = []string{
	"FLOW_FEE_RATE",
	"BUY_TAX_RATE",
	"SELL_TAX_RATE",
	"PROFIT_TAX_RATE",
}

func unsetAllConfigEnv() {
	keys := append([]string{
		"PORT", "LOG_LEVEL", "ORDER_FEE",
		"INITIAL_CAPITAL", "RISK_FREE_RATE", "LEVERAGE", "MARGIN",
		"MAX_DISPATCH_DEPTH",
		"READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	}, rateEnvKeys...)
	for _, key := range keys {
		os.Unsetenv(key)
	}
}

// Any rate inside [0, 1] loads back exactly; anything outside is rejected.
func TestProperty_RateBounds(t *testing.T) {
	for _, key := range rateEnvKeys {
		t.Run(key, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				unsetAllConfigEnv()
				defer unsetAllConfigEnv()

				rate := rapid.Float64Range(-1, 2).Draw(t, "rate")
				os.Setenv(key, strconv.FormatFloat(rate, 'f', -1, 64))

				cfg, err := Load()
				if rate >= 0 && rate <= 1 {
					if err != nil {
						t.Fatalf("Load() returned error for valid %s=%v: %v", key, rate, err)
					}
					got := map[string]float64{
						"FLOW_FEE_RATE":   cfg.FlowFeeRate,
						"BUY_TAX_RATE":    cfg.BuyTaxRate,
						"SELL_TAX_RATE":   cfg.SellTaxRate,
						"PROFIT_TAX_RATE": cfg.ProfitTaxRate,
					}[key]
					if got != rate {
						t.Fatalf("%s = %v, want %v", key, got, rate)
					}
				} else if err == nil {
					t.Fatalf("Load() should return error for out-of-bounds %s=%v", key, rate)
				}
			})
		})
	}
}

// Valid positive capital amounts always load back exactly.
func TestProperty_InitialCapital(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		unsetAllConfigEnv()
		defer unsetAllConfigEnv()

		capital := rapid.Float64Range(0.01, 1e9).Draw(t, "capital")
		os.Setenv("INITIAL_CAPITAL", strconv.FormatFloat(capital, 'f', -1, 64))

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned error for valid INITIAL_CAPITAL=%v: %v", capital, err)
		}
		if cfg.InitialCapital != capital {
			t.Fatalf("InitialCapital = %v, want %v", cfg.InitialCapital, capital)
		}
	})
}
