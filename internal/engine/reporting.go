package engine

import (
	"backsim/types"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Report is the structured result of one run. Ratio metrics are float64 and
// use NaN / +Inf as explicit "undefined" sentinels: a flat equity curve or
// a strategy with no losing trades is a valid outcome, not a defect.
type Report struct {
	StartDate time.Time
	EndDate   time.Time
	Bars      int

	InitialCash        decimal.Decimal
	FinalEquity        decimal.Decimal
	NetProfit          decimal.Decimal
	TotalReturnPercent float64
	CAGR               float64

	RealizedPnL        decimal.Decimal
	UnrealizedPnL      decimal.Decimal
	OpenPositionsValue decimal.Decimal

	SharpeRatio         float64
	SortinoRatio        float64
	MaxDrawdown         float64 // fraction of peak equity, in [0, 1]
	MaxDrawdownDuration int     // bars from peak to recovery

	TotalTrades          int
	WinRate              float64
	ProfitFactor         float64
	AvgTradePnL          decimal.Decimal
	AvgWin               decimal.Decimal
	AvgLoss              decimal.Decimal
	LargestWin           decimal.Decimal
	LargestLoss          decimal.Decimal
	MaxConsecutiveLosses int

	TotalCommission decimal.Decimal
	RejectedOrders  int
}

// generateReport is a pure pass over the equity curve and trade log; it
// never mutates either.
func generateReport(
	snapshots []types.PortfolioSnapshot,
	trades []types.Trade,
	tf types.Timeframe,
	initialCash decimal.Decimal,
	totalCommission decimal.Decimal,
	rejectedOrders int,
) *Report {
	report := &Report{
		Bars:            len(snapshots),
		InitialCash:     initialCash,
		TotalTrades:     len(trades),
		TotalCommission: totalCommission,
		RejectedOrders:  rejectedOrders,
	}
	if len(snapshots) > 0 {
		report.StartDate = snapshots[0].Time
		report.EndDate = snapshots[len(snapshots)-1].Time
		report.FinalEquity = snapshots[len(snapshots)-1].Equity
	} else {
		report.FinalEquity = initialCash
	}
	report.NetProfit = report.FinalEquity.Sub(initialCash)
	if initialCash.IsPositive() {
		report.TotalReturnPercent = report.NetProfit.Div(initialCash).InexactFloat64() * 100
	}

	returns := periodReturns(snapshots)
	periodsPerYear := tf.PeriodsPerYear()
	report.CAGR = calcCAGR(initialCash, report.FinalEquity, len(snapshots), periodsPerYear)

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		report.SharpeRatio = calcSharpeRatio(returns, periodsPerYear)
		report.SortinoRatio = calcSortinoRatio(returns, periodsPerYear)
	}()
	go func() {
		defer wg.Done()
		report.MaxDrawdown, report.MaxDrawdownDuration = calcDrawdown(snapshots)
	}()
	go func() {
		defer wg.Done()
		report.WinRate, report.ProfitFactor = calcWinRateProfitFactor(trades)
		report.MaxConsecutiveLosses = calcMaxConsecutiveLosses(trades)
	}()
	go func() {
		defer wg.Done()
		report.AvgTradePnL, report.AvgWin, report.AvgLoss, report.LargestWin, report.LargestLoss = calcTradeAggregates(trades)
	}()
	wg.Wait()

	return report
}

// periodReturns builds the simple return series r_t = e_t/e_{t-1} - 1.
func periodReturns(snapshots []types.PortfolioSnapshot) []float64 {
	if len(snapshots) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(snapshots)-1)
	prev := snapshots[0].Equity
	for _, snap := range snapshots[1:] {
		if !prev.IsPositive() {
			prev = snap.Equity
			continue
		}
		r := snap.Equity.Div(prev).Sub(decimal.NewFromInt(1)).InexactFloat64()
		returns = append(returns, r)
		prev = snap.Equity
	}
	return returns
}

// calcCAGR annualizes the total return over the replayed span. NaN when the
// span is empty or either endpoint is non-positive.
func calcCAGR(initialCash, finalEquity decimal.Decimal, bars int, periodsPerYear float64) float64 {
	if bars == 0 || periodsPerYear == 0 || !initialCash.IsPositive() || !finalEquity.IsPositive() {
		return math.NaN()
	}
	years := float64(bars) / periodsPerYear
	growth := finalEquity.Div(initialCash).InexactFloat64()
	return math.Pow(growth, 1/years) - 1
}

// calcSharpeRatio annualizes mean(r)/stdev(r) by sqrt(periodsPerYear).
// NaN when the return series has no variance.
func calcSharpeRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	mean := meanOf(returns)
	std := sampleStdev(returns, mean)
	if std == 0 {
		return math.NaN()
	}
	return mean / std * math.Sqrt(periodsPerYear)
}

// calcSortinoRatio is Sharpe with the denominator restricted to negative
// returns. NaN when downside variance is zero.
func calcSortinoRatio(returns []float64, periodsPerYear float64) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) < 2 {
		return math.NaN()
	}
	downStd := sampleStdev(downside, meanOf(downside))
	if downStd == 0 {
		return math.NaN()
	}
	return meanOf(returns) / downStd * math.Sqrt(periodsPerYear)
}

// calcDrawdown tracks a running peak over the equity curve and returns the
// deepest peak-to-trough decline as a fraction of the peak, plus the
// longest stretch of bars from a peak to recovery at or above it. An
// unrecovered drawdown counts through the final bar.
func calcDrawdown(snapshots []types.PortfolioSnapshot) (float64, int) {
	if len(snapshots) == 0 {
		return 0, 0
	}

	peak := snapshots[0].Equity
	peakIdx := 0
	maxDD := 0.0
	maxDuration := 0

	for i, snap := range snapshots {
		if snap.Equity.GreaterThanOrEqual(peak) {
			peak = snap.Equity
			peakIdx = i
			continue
		}
		if peak.IsPositive() {
			dd := peak.Sub(snap.Equity).Div(peak).InexactFloat64()
			if dd > maxDD {
				maxDD = dd
			}
		}
		if duration := i - peakIdx; duration > maxDuration {
			maxDuration = duration
		}
	}

	return maxDD, maxDuration
}

// calcWinRateProfitFactor aggregates the closed-trade log. Win rate is NaN
// with no trades; profit factor is NaN with no trades and +Inf when there
// are wins but no losers.
func calcWinRateProfitFactor(trades []types.Trade) (float64, float64) {
	if len(trades) == 0 {
		return math.NaN(), math.NaN()
	}
	wins := 0
	grossWins := decimal.Zero
	grossLosses := decimal.Zero
	for _, tr := range trades {
		switch {
		case tr.RealizedPnL.IsPositive():
			wins++
			grossWins = grossWins.Add(tr.RealizedPnL)
		case tr.RealizedPnL.IsNegative():
			grossLosses = grossLosses.Add(tr.RealizedPnL.Abs())
		}
	}
	winRate := float64(wins) / float64(len(trades))

	var profitFactor float64
	switch {
	case grossLosses.IsPositive():
		profitFactor = grossWins.Div(grossLosses).InexactFloat64()
	case grossWins.IsPositive():
		profitFactor = math.Inf(1)
	default:
		profitFactor = math.NaN()
	}
	return winRate, profitFactor
}

func calcTradeAggregates(trades []types.Trade) (avgPnL, avgWin, avgLoss, largestWin, largestLoss decimal.Decimal) {
	if len(trades) == 0 {
		return decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	}
	total := decimal.Zero
	sumWins, sumLosses := decimal.Zero, decimal.Zero
	winCount, lossCount := 0, 0
	for _, tr := range trades {
		pnl := tr.RealizedPnL
		total = total.Add(pnl)
		switch {
		case pnl.IsPositive():
			sumWins = sumWins.Add(pnl)
			winCount++
			if pnl.GreaterThan(largestWin) {
				largestWin = pnl
			}
		case pnl.IsNegative():
			sumLosses = sumLosses.Add(pnl)
			lossCount++
			if pnl.LessThan(largestLoss) {
				largestLoss = pnl
			}
		}
	}
	avgPnL = total.Div(decimal.NewFromInt(int64(len(trades))))
	if winCount > 0 {
		avgWin = sumWins.Div(decimal.NewFromInt(int64(winCount)))
	}
	if lossCount > 0 {
		avgLoss = sumLosses.Div(decimal.NewFromInt(int64(lossCount)))
	}
	return avgPnL, avgWin, avgLoss, largestWin, largestLoss
}

func calcMaxConsecutiveLosses(trades []types.Trade) int {
	maxStreak, streak := 0, 0
	for _, tr := range trades {
		if tr.RealizedPnL.IsNegative() {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return maxStreak
}

// Metrics returns the report as a metric-name-to-value map for structured
// sinks. Undefined metrics stay NaN/Inf; callers decide how to render them.
func (r *Report) Metrics() map[string]float64 {
	return map[string]float64{
		"net_profit":             r.NetProfit.InexactFloat64(),
		"total_return_percent":   r.TotalReturnPercent,
		"cagr":                   r.CAGR,
		"realized_pnl":           r.RealizedPnL.InexactFloat64(),
		"unrealized_pnl":         r.UnrealizedPnL.InexactFloat64(),
		"open_positions_value":   r.OpenPositionsValue.InexactFloat64(),
		"sharpe_ratio":           r.SharpeRatio,
		"sortino_ratio":          r.SortinoRatio,
		"max_drawdown":           r.MaxDrawdown,
		"max_drawdown_duration":  float64(r.MaxDrawdownDuration),
		"total_trades":           float64(r.TotalTrades),
		"win_rate":               r.WinRate,
		"profit_factor":          r.ProfitFactor,
		"avg_trade_pnl":          r.AvgTradePnL.InexactFloat64(),
		"avg_win":                r.AvgWin.InexactFloat64(),
		"avg_loss":               r.AvgLoss.InexactFloat64(),
		"largest_win":            r.LargestWin.InexactFloat64(),
		"largest_loss":           r.LargestLoss.InexactFloat64(),
		"max_consecutive_losses": float64(r.MaxConsecutiveLosses),
		"total_commission":       r.TotalCommission.InexactFloat64(),
		"rejected_orders":        float64(r.RejectedOrders),
	}
}

// String renders the human-readable report.
func (r *Report) String() string {
	var sb strings.Builder

	fmt.Fprintln(&sb, "===== Trading Report =====")
	fmt.Fprintf(&sb, "Start Date:            %s\n", r.StartDate.Format("2006-01-02"))
	fmt.Fprintf(&sb, "End Date:              %s\n", r.EndDate.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Bars Processed:        %d\n", r.Bars)

	fmt.Fprintln(&sb, "\n-- Absolute Performance --")
	fmt.Fprintf(&sb, "Initial Cash:          %s\n", r.InitialCash)
	fmt.Fprintf(&sb, "Final Equity:          %s\n", r.FinalEquity)
	fmt.Fprintf(&sb, "Net Profit:            %s\n", r.NetProfit)
	fmt.Fprintf(&sb, "Total Return:          %.2f%%\n", r.TotalReturnPercent)
	fmt.Fprintf(&sb, "CAGR:                  %s\n", fmtRatio(r.CAGR))
	fmt.Fprintf(&sb, "Realized P&L:          %s\n", r.RealizedPnL)
	fmt.Fprintf(&sb, "Unrealized P&L:        %s\n", r.UnrealizedPnL)
	fmt.Fprintf(&sb, "Open Positions Value:  %s\n", r.OpenPositionsValue)

	fmt.Fprintln(&sb, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(&sb, "Sharpe Ratio:          %s\n", fmtRatio(r.SharpeRatio))
	fmt.Fprintf(&sb, "Sortino Ratio:         %s\n", fmtRatio(r.SortinoRatio))
	fmt.Fprintf(&sb, "Max Drawdown:          %.2f%%\n", r.MaxDrawdown*100)
	fmt.Fprintf(&sb, "Max Drawdown Duration: %d bars\n", r.MaxDrawdownDuration)

	fmt.Fprintln(&sb, "\n-- Trade-Level Metrics --")
	fmt.Fprintf(&sb, "Total Trades:          %d\n", r.TotalTrades)
	fmt.Fprintf(&sb, "Win Rate:              %s\n", fmtRatio(r.WinRate))
	fmt.Fprintf(&sb, "Profit Factor:         %s\n", fmtRatio(r.ProfitFactor))
	fmt.Fprintf(&sb, "Avg Trade P&L:         %s\n", r.AvgTradePnL)
	fmt.Fprintf(&sb, "Avg Win:               %s\n", r.AvgWin)
	fmt.Fprintf(&sb, "Avg Loss:              %s\n", r.AvgLoss)
	fmt.Fprintf(&sb, "Largest Win:           %s\n", r.LargestWin)
	fmt.Fprintf(&sb, "Largest Loss:          %s\n", r.LargestLoss)
	fmt.Fprintf(&sb, "Max Consecutive Losses:%d\n", r.MaxConsecutiveLosses)

	fmt.Fprintln(&sb, "\n-- Costs & Diagnostics --")
	fmt.Fprintf(&sb, "Total Commission:      %s\n", r.TotalCommission)
	fmt.Fprintf(&sb, "Rejected Orders:       %d\n", r.RejectedOrders)

	fmt.Fprintln(&sb, "==========================")
	return sb.String()
}

func fmtRatio(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	default:
		return fmt.Sprintf("%.4f", v)
	}
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sampleStdev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var varianceSum float64
	for _, x := range xs {
		diff := x - mean
		varianceSum += diff * diff
	}
	return math.Sqrt(varianceSum / float64(len(xs)-1))
}
