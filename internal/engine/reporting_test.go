package engine

import (
	"backsim/types"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func equityCurve(values ...int64) []types.PortfolioSnapshot {
	snaps := make([]types.PortfolioSnapshot, len(values))
	for i, v := range values {
		snaps[i] = types.PortfolioSnapshot{
			Time:   dayN(i),
			Cash:   decimal.NewFromInt(v),
			Equity: decimal.NewFromInt(v),
		}
	}
	return snaps
}

func tradeWithPnL(pnl int64) types.Trade {
	return types.Trade{
		Symbol:      "AAPL",
		Side:        types.SideTypeBuy,
		Quantity:    10,
		RealizedPnL: decimal.NewFromInt(pnl),
	}
}

func TestCalcDrawdown(t *testing.T) {
	tests := []struct {
		name         string
		curve        []types.PortfolioSnapshot
		wantDD       float64
		wantDuration int
	}{
		{"empty curve", nil, 0, 0},
		{"monotonic rise", equityCurve(100, 110, 120), 0, 0},
		{"single dip", equityCurve(100000, 110000, 95000, 105000), 15000.0 / 110000.0, 2},
		{"recovery resets peak", equityCurve(100, 90, 100, 95), 0.1, 1},
		{"unrecovered counts to end", equityCurve(100, 90, 80, 70), 0.3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd, duration := calcDrawdown(tt.curve)
			if math.Abs(dd-tt.wantDD) > 1e-9 {
				t.Errorf("calcDrawdown() dd = %v, want %v", dd, tt.wantDD)
			}
			if duration != tt.wantDuration {
				t.Errorf("calcDrawdown() duration = %d, want %d", duration, tt.wantDuration)
			}
		})
	}
}

func TestCalcCAGR(t *testing.T) {
	// 10% over exactly one year of daily bars
	got := calcCAGR(decimal.NewFromInt(100000), decimal.NewFromInt(110000), 252, 252)
	if math.Abs(got-0.1) > 1e-9 {
		t.Errorf("calcCAGR(one year) = %v, want 0.1", got)
	}

	// 21% over two years annualizes to 10%
	got = calcCAGR(decimal.NewFromInt(100000), decimal.NewFromInt(121000), 504, 252)
	if math.Abs(got-0.1) > 1e-9 {
		t.Errorf("calcCAGR(two years) = %v, want 0.1", got)
	}

	if got := calcCAGR(decimal.NewFromInt(100000), decimal.NewFromInt(110000), 0, 252); !math.IsNaN(got) {
		t.Errorf("calcCAGR(no bars) = %v, want NaN", got)
	}
	if got := calcCAGR(decimal.Zero, decimal.NewFromInt(110000), 252, 252); !math.IsNaN(got) {
		t.Errorf("calcCAGR(zero initial) = %v, want NaN", got)
	}
}

func TestCalcSharpeRatio(t *testing.T) {
	if got := calcSharpeRatio(nil, 252); !math.IsNaN(got) {
		t.Errorf("calcSharpeRatio(nil) = %v, want NaN", got)
	}
	if got := calcSharpeRatio([]float64{0.01, 0.01, 0.01}, 252); !math.IsNaN(got) {
		t.Errorf("calcSharpeRatio(zero variance) = %v, want NaN", got)
	}

	// mean 0.01, sample stdev 0.01 -> 1 * sqrt(252)
	got := calcSharpeRatio([]float64{0.0, 0.01, 0.02}, 252)
	want := math.Sqrt(252)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("calcSharpeRatio() = %v, want %v", got, want)
	}
}

func TestCalcSortinoRatio(t *testing.T) {
	if got := calcSortinoRatio([]float64{0.01, 0.02, 0.03}, 252); !math.IsNaN(got) {
		t.Errorf("calcSortinoRatio(no downside) = %v, want NaN", got)
	}
	if got := calcSortinoRatio([]float64{0.01, -0.02}, 252); !math.IsNaN(got) {
		t.Errorf("calcSortinoRatio(single negative) = %v, want NaN", got)
	}
	got := calcSortinoRatio([]float64{0.05, -0.01, -0.03}, 252)
	if math.IsNaN(got) || got <= 0 {
		t.Errorf("calcSortinoRatio() = %v, want positive finite", got)
	}
}

func TestCalcWinRateProfitFactor(t *testing.T) {
	winRate, pf := calcWinRateProfitFactor(nil)
	if !math.IsNaN(winRate) || !math.IsNaN(pf) {
		t.Errorf("no trades = (%v, %v), want (NaN, NaN)", winRate, pf)
	}

	trades := []types.Trade{tradeWithPnL(100), tradeWithPnL(300), tradeWithPnL(-100)}
	winRate, pf = calcWinRateProfitFactor(trades)
	if math.Abs(winRate-2.0/3.0) > 1e-9 {
		t.Errorf("winRate = %v, want 2/3", winRate)
	}
	if math.Abs(pf-4.0) > 1e-9 {
		t.Errorf("profitFactor = %v, want 4.0", pf)
	}

	_, pf = calcWinRateProfitFactor([]types.Trade{tradeWithPnL(100)})
	if !math.IsInf(pf, 1) {
		t.Errorf("profitFactor with no losers = %v, want +Inf", pf)
	}

	winRate, pf = calcWinRateProfitFactor([]types.Trade{tradeWithPnL(0)})
	if winRate != 0 || !math.IsNaN(pf) {
		t.Errorf("breakeven only = (%v, %v), want (0, NaN)", winRate, pf)
	}
}

func TestCalcTradeAggregates(t *testing.T) {
	trades := []types.Trade{
		tradeWithPnL(100), tradeWithPnL(300), tradeWithPnL(-100), tradeWithPnL(-50),
	}
	avgPnL, avgWin, avgLoss, largestWin, largestLoss := calcTradeAggregates(trades)
	if !avgPnL.Equal(decimal.NewFromFloat(62.5)) {
		t.Errorf("avgPnL = %s, want 62.5", avgPnL)
	}
	if !avgWin.Equal(decimal.NewFromInt(200)) {
		t.Errorf("avgWin = %s, want 200", avgWin)
	}
	if !avgLoss.Equal(decimal.NewFromInt(-75)) {
		t.Errorf("avgLoss = %s, want -75", avgLoss)
	}
	if !largestWin.Equal(decimal.NewFromInt(300)) {
		t.Errorf("largestWin = %s, want 300", largestWin)
	}
	if !largestLoss.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("largestLoss = %s, want -100", largestLoss)
	}
}

func TestCalcMaxConsecutiveLosses(t *testing.T) {
	trades := []types.Trade{
		tradeWithPnL(-10), tradeWithPnL(-10), tradeWithPnL(50),
		tradeWithPnL(-10), tradeWithPnL(-10), tradeWithPnL(-10),
	}
	if got := calcMaxConsecutiveLosses(trades); got != 3 {
		t.Errorf("calcMaxConsecutiveLosses() = %d, want 3", got)
	}
	if got := calcMaxConsecutiveLosses(nil); got != 0 {
		t.Errorf("calcMaxConsecutiveLosses(nil) = %d, want 0", got)
	}
}

func TestPeriodReturns(t *testing.T) {
	if got := periodReturns(equityCurve(100)); got != nil {
		t.Errorf("periodReturns(single point) = %v, want nil", got)
	}
	returns := periodReturns(equityCurve(100, 110, 99))
	if len(returns) != 2 {
		t.Fatalf("periodReturns() = %d returns, want 2", len(returns))
	}
	if math.Abs(returns[0]-0.1) > 1e-9 {
		t.Errorf("returns[0] = %v, want 0.1", returns[0])
	}
	if math.Abs(returns[1]-(-0.1)) > 1e-9 {
		t.Errorf("returns[1] = %v, want -0.1", returns[1])
	}
}

func TestGenerateReport(t *testing.T) {
	snapshots := equityCurve(100000, 110000, 95000, 105000)
	trades := []types.Trade{tradeWithPnL(100), tradeWithPnL(300), tradeWithPnL(-100)}

	report := generateReport(snapshots, trades, types.Day,
		decimal.NewFromInt(100000), decimal.NewFromInt(12), 2)

	if report.Bars != 4 {
		t.Errorf("Bars = %d, want 4", report.Bars)
	}
	if !report.NetProfit.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("NetProfit = %s, want 5000", report.NetProfit)
	}
	if math.Abs(report.TotalReturnPercent-5.0) > 1e-9 {
		t.Errorf("TotalReturnPercent = %v, want 5", report.TotalReturnPercent)
	}
	if math.Abs(report.MaxDrawdown-15000.0/110000.0) > 1e-9 {
		t.Errorf("MaxDrawdown = %v, want %v", report.MaxDrawdown, 15000.0/110000.0)
	}
	if report.MaxDrawdownDuration != 2 {
		t.Errorf("MaxDrawdownDuration = %d, want 2", report.MaxDrawdownDuration)
	}
	if report.TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", report.TotalTrades)
	}
	if report.RejectedOrders != 2 {
		t.Errorf("RejectedOrders = %d, want 2", report.RejectedOrders)
	}
	if !report.TotalCommission.Equal(decimal.NewFromInt(12)) {
		t.Errorf("TotalCommission = %s, want 12", report.TotalCommission)
	}
	if report.MaxConsecutiveLosses != 1 {
		t.Errorf("MaxConsecutiveLosses = %d, want 1", report.MaxConsecutiveLosses)
	}
}

func TestGenerateReport_Empty(t *testing.T) {
	report := generateReport(nil, nil, types.Day,
		decimal.NewFromInt(100000), decimal.Zero, 0)

	if !report.FinalEquity.Equal(decimal.NewFromInt(100000)) {
		t.Errorf("FinalEquity = %s, want initial cash", report.FinalEquity)
	}
	if !report.NetProfit.IsZero() {
		t.Errorf("NetProfit = %s, want 0", report.NetProfit)
	}
	if !math.IsNaN(report.SharpeRatio) || !math.IsNaN(report.WinRate) {
		t.Errorf("empty run ratios = (%v, %v), want NaN sentinels", report.SharpeRatio, report.WinRate)
	}
}

func TestReport_String(t *testing.T) {
	report := generateReport(nil, nil, types.Day, decimal.NewFromInt(1000), decimal.Zero, 0)
	out := report.String()

	if !strings.Contains(out, "Sharpe Ratio:          n/a") {
		t.Errorf("String() missing n/a sentinel rendering:\n%s", out)
	}
	if !strings.Contains(out, "Total Trades:          0") {
		t.Errorf("String() missing trade count:\n%s", out)
	}

	report.ProfitFactor = math.Inf(1)
	if !strings.Contains(report.String(), "Profit Factor:         inf") {
		t.Error("String() missing inf rendering")
	}
}
