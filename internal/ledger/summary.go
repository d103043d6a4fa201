package ledger

import (
	"fmt"
	"math"
	"strings"

	"github.com/raulikeda/EventBacktesting/internal/domain"
)

// Summary is the read-side performance report over a strategy's archived
// round-trip trades. Monetary figures are dollars; ratios are fractions.
type Summary struct {
	Strategy string `json:"strategy"`

	Trades      int     `json:"trades"`
	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
	GrossTotal  float64 `json:"gross_total"`

	HitRatio      float64 `json:"hit_ratio"`
	WinCount      int     `json:"win_count"`
	LossCount     int     `json:"loss_count"`
	AvgFills      float64 `json:"avg_fills_per_trade"`
	MaxWin        float64 `json:"max_win"`
	AvgWin        float64 `json:"avg_win"`
	MaxLoss       float64 `json:"max_loss"`
	AvgLoss       float64 `json:"avg_loss"`
	AvgTrade      float64 `json:"avg_trade"`
	WinLossRatio  float64 `json:"win_loss_ratio"`
	HasWinAndLoss bool    `json:"has_win_and_loss"`

	MaxProfitClose   float64 `json:"max_profit_close"`
	MaxProfitHighLow float64 `json:"max_profit_high_low"`
	MaxDrawdownClose float64 `json:"max_drawdown_close"`
	MaxDrawdownLow   float64 `json:"max_drawdown_high_low"`

	MaxAllocation   float64 `json:"max_allocation"`
	AvgAllocation   float64 `json:"avg_allocation"`
	MaxCashRequired float64 `json:"max_cash_required"`

	TotalFees  float64 `json:"total_fees"`
	TotalTaxes float64 `json:"total_taxes"`
	NetTotal   float64 `json:"net_total"`

	GrossReturn       float64 `json:"gross_return"`
	AvgReturn         float64 `json:"avg_return"`
	NetReturn         float64 `json:"net_return"`
	NetReturnAvgAlloc float64 `json:"net_return_avg_allocation"`

	Days              int     `json:"days"`
	InitialCapital    float64 `json:"initial_capital"`
	RiskFreeRate      float64 `json:"risk_free_rate"`
	DailyRate         float64 `json:"daily_rate"`
	TotalCarry        float64 `json:"total_carry"`
	NetTotalWithCarry float64 `json:"net_total_with_carry"`
	NetReturnCapital  float64 `json:"net_return_capital"`
	NetReturnYearly   float64 `json:"net_return_capital_yearly"`
}

// Summary builds the report for a strategy from its archived entries and
// the run's day calendar. It is a pure read and mutates nothing.
func (l *Ledger) Summary(strategy string) *Summary {
	trades := l.trades.ListByStrategy(strategy)

	s := &Summary{
		Strategy:       strategy,
		Trades:         len(trades),
		Days:           len(l.days),
		InitialCapital: l.params.InitialCapital,
		RiskFreeRate:   l.params.RiskFreeRate,
		DailyRate:      l.dailyRate(),
	}

	if len(trades) > 0 {
		var fills int
		var wins, losses []*domain.TradeEntry
		for _, t := range trades {
			fills += t.Fills
			s.GrossTotal += t.PnL
			s.TotalFees += t.Fee
			s.TotalTaxes += t.Tax
			s.GrossReturn += t.Return
			s.NetReturn += t.NetReturn
			s.AvgAllocation += t.MaxAlloc

			switch {
			case t.PnL > 0:
				wins = append(wins, t)
				s.GrossProfit += t.PnL
			case t.PnL < 0:
				losses = append(losses, t)
				s.GrossLoss += t.PnL
			}

			s.MaxProfitClose = math.Max(s.MaxProfitClose, t.MaxProfitClose)
			s.MaxProfitHighLow = math.Max(s.MaxProfitHighLow, t.MaxProfitHigh)
			s.MaxDrawdownClose = math.Min(s.MaxDrawdownClose, t.MaxDrawdownClose)
			s.MaxDrawdownLow = math.Min(s.MaxDrawdownLow, t.MaxDrawdownLow)
			s.MaxAllocation = math.Max(s.MaxAllocation, t.MaxAlloc)
		}

		s.WinCount = len(wins)
		s.LossCount = len(losses)
		s.HitRatio = float64(len(wins)) / float64(len(trades))
		s.AvgFills = float64(fills) / float64(len(trades))
		s.AvgTrade = s.GrossTotal / float64(len(trades))
		s.AvgAllocation /= float64(len(trades))
		s.AvgReturn = s.GrossReturn / float64(len(trades))
		s.MaxCashRequired = s.MaxAllocation * l.params.Margin
		s.NetTotal = s.GrossTotal - s.TotalFees - s.TotalTaxes
		if s.AvgAllocation > 0 {
			s.NetReturnAvgAlloc = s.NetTotal / s.AvgAllocation
		}

		if len(wins) > 0 {
			for _, t := range wins {
				s.MaxWin = math.Max(s.MaxWin, t.PnL)
				s.AvgWin += t.PnL
			}
			s.AvgWin /= float64(len(wins))
		}
		if len(losses) > 0 {
			for _, t := range losses {
				s.MaxLoss = math.Min(s.MaxLoss, t.PnL)
				s.AvgLoss += t.PnL
			}
			s.AvgLoss /= float64(len(losses))
		}
		if len(wins) > 0 && len(losses) > 0 {
			s.HasWinAndLoss = true
			s.WinLossRatio = -s.AvgWin / s.AvgLoss
		}
	}

	for _, mark := range l.days {
		s.TotalCarry += mark.Carry
	}
	s.NetTotalWithCarry = s.NetTotal + s.TotalCarry
	if s.InitialCapital > 0 {
		s.NetReturnCapital = s.NetTotalWithCarry / s.InitialCapital
	}
	if s.Days > 0 {
		s.NetReturnYearly = math.Pow(1+s.NetReturnCapital, tradingDaysPerYear/float64(s.Days)) - 1
	}
	return s
}

// String renders the report as the plain-text block printed at the end of
// a run.
func (s *Summary) String() string {
	var b strings.Builder

	if s.Trades == 0 {
		b.WriteString("No trades in the period\n\n")
	} else {
		fmt.Fprintf(&b, "Gross Profit: $%.2f\n", s.GrossProfit)
		fmt.Fprintf(&b, "Gross Loss: $%.2f\n", s.GrossLoss)
		fmt.Fprintf(&b, "Gross Total: $%.2f\n\n", s.GrossTotal)

		fmt.Fprintf(&b, "Number of trades: %d\n", s.Trades)
		fmt.Fprintf(&b, "Hitting Ratio: %.2f%%\n", 100*s.HitRatio)
		fmt.Fprintf(&b, "Number of profit trades: %d\n", s.WinCount)
		fmt.Fprintf(&b, "Number of loss trades: %d\n", s.LossCount)
		fmt.Fprintf(&b, "Average number of fills per trade: %.2f\n\n", s.AvgFills)

		if s.WinCount > 0 {
			fmt.Fprintf(&b, "Max win trade: $%.2f\n", s.MaxWin)
			fmt.Fprintf(&b, "Avg win trade: $%.2f\n", s.AvgWin)
		} else {
			b.WriteString("Max win trade: $-\n")
			b.WriteString("Avg win trade: $-\n")
		}
		if s.LossCount > 0 {
			fmt.Fprintf(&b, "Max loss trade: $%.2f\n", s.MaxLoss)
			fmt.Fprintf(&b, "Avg loss trade: $%.2f\n", s.AvgLoss)
		} else {
			b.WriteString("Max loss trade: $-\n")
			b.WriteString("Avg loss trade: $-\n")
		}
		fmt.Fprintf(&b, "Avg all trades: $%.2f\n", s.AvgTrade)
		if s.HasWinAndLoss {
			fmt.Fprintf(&b, "Win/Loss ratio: %.2f\n\n", s.WinLossRatio)
		} else {
			b.WriteString("Win/Loss ratio: -\n\n")
		}

		fmt.Fprintf(&b, "Max Profit: $%.2f\n", s.MaxProfitClose)
		fmt.Fprintf(&b, "Max Profit High/Low: $%.2f\n", s.MaxProfitHighLow)
		fmt.Fprintf(&b, "Max Drawdown: $%.2f\n", s.MaxDrawdownClose)
		fmt.Fprintf(&b, "Max Drawdown High/Low: $%.2f\n\n", s.MaxDrawdownLow)

		fmt.Fprintf(&b, "Max Allocation: $%.2f\n", s.MaxAllocation)
		fmt.Fprintf(&b, "Avg Allocation: $%.2f\n", s.AvgAllocation)
		fmt.Fprintf(&b, "Max Cash Required (margin): $%.2f\n\n", s.MaxCashRequired)

		fmt.Fprintf(&b, "Gross Total: $%.2f\n", s.GrossTotal)
		fmt.Fprintf(&b, "Total Fees: $%.2f\n", s.TotalFees)
		fmt.Fprintf(&b, "Total Taxes: $%.2f\n", s.TotalTaxes)
		fmt.Fprintf(&b, "Net Total: $%.2f\n\n", s.NetTotal)

		fmt.Fprintf(&b, "Gross Return: %.2f%%\n", 100*s.GrossReturn)
		fmt.Fprintf(&b, "Average Return: %.2f%%\n", 100*s.AvgReturn)
		fmt.Fprintf(&b, "Net Return: %.2f%%\n", 100*s.NetReturn)
		fmt.Fprintf(&b, "Net Return Avg Allocation: %.2f%%\n\n", 100*s.NetReturnAvgAlloc)
	}

	fmt.Fprintf(&b, "Number of days: %d\n", s.Days)
	fmt.Fprintf(&b, "Initial Capital: $%.2f\n", s.InitialCapital)
	fmt.Fprintf(&b, "Risk Free Rate: %.2f%% yearly/%.4f%% daily\n", s.RiskFreeRate, 100*s.DailyRate)
	fmt.Fprintf(&b, "Total Carry: $%.2f\n", s.TotalCarry)
	fmt.Fprintf(&b, "Net Total + Carry: $%.2f\n", s.NetTotalWithCarry)
	fmt.Fprintf(&b, "Net Return Capital: %.2f%%\n", 100*s.NetReturnCapital)
	if s.Days > 0 {
		fmt.Fprintf(&b, "Net Return Capital Yearly: %.2f%%\n", 100*s.NetReturnYearly)
	}
	return b.String()
}
