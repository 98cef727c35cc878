package engine

import (
	"backsim/types"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type mockDataStore struct {
	feeds   map[string][]types.Bar
	assets  map[string]*types.Asset
	barsErr error
}

func (m *mockDataStore) GetAssetByTicker(_ context.Context, ticker string) (*types.Asset, error) {
	asset, ok := m.assets[ticker]
	if !ok {
		return nil, errors.New("not found in datasource")
	}
	return asset, nil
}

func (m *mockDataStore) GetBars(_ context.Context, _ int, ticker string, _ types.Timeframe, _, _ time.Time) ([]types.Bar, error) {
	if m.barsErr != nil {
		return nil, m.barsErr
	}
	return m.feeds[ticker], nil
}

func TestEngine_Run(t *testing.T) {
	store := &mockDataStore{
		assets: map[string]*types.Asset{
			"AAPL": {Id: 1, Ticker: "AAPL", Type: types.AssetTypeStock},
		},
		feeds: map[string][]types.Bar{
			"AAPL": {
				testBar("AAPL", dayN(0), 100, 100),
				testBar("AAPL", dayN(1), 100, 105),
				testBar("AAPL", dayN(2), 106, 110),
			},
		},
	}
	cfg := defaultConfig()
	strat := &scriptStrategy{onBar: map[int]func(*Context, types.Bar){
		0: func(ctx *Context, _ types.Bar) { ctx.Buy("AAPL", 10) },
	}}

	eng, err := NewEngine(cfg, strat, store, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	eng.SetProgress(false)

	report, err := eng.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Bars != 3 {
		t.Errorf("report.Bars = %d, want 3", report.Bars)
	}
	// 99000 cash + 10*110 = 100100
	if !report.FinalEquity.Equal(decimal.NewFromInt(100100)) {
		t.Errorf("report.FinalEquity = %s, want 100100", report.FinalEquity)
	}
	if !report.NetProfit.Equal(decimal.NewFromInt(100)) {
		t.Errorf("report.NetProfit = %s, want 100", report.NetProfit)
	}
	if !report.StartDate.Equal(dayN(0)) || !report.EndDate.Equal(dayN(2)) {
		t.Errorf("report dates = %s..%s, want day0..day2", report.StartDate, report.EndDate)
	}
	// still holding 10 shares bought at 100, last marked at 110
	if !report.OpenPositionsValue.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("report.OpenPositionsValue = %s, want 1100", report.OpenPositionsValue)
	}
	if !report.UnrealizedPnL.Equal(decimal.NewFromInt(100)) {
		t.Errorf("report.UnrealizedPnL = %s, want 100", report.UnrealizedPnL)
	}
	if !report.RealizedPnL.IsZero() {
		t.Errorf("report.RealizedPnL = %s, want 0", report.RealizedPnL)
	}
}

func TestEngine_ConfigValidation(t *testing.T) {
	base := func() *BacktestConfig { return defaultConfig() }

	tests := []struct {
		name    string
		mutate  func(cfg *BacktestConfig)
		wantErr error
	}{
		{"should reject empty symbols", func(c *BacktestConfig) { c.Symbols = nil }, ErrNoSymbols},
		{"should reject blank symbol", func(c *BacktestConfig) { c.Symbols = []string{""} }, ErrNoSymbols},
		{"should reject bad timeframe", func(c *BacktestConfig) { c.Timeframe = "1Month" }, ErrInvalidTimeframe},
		{"should reject inverted range", func(c *BacktestConfig) { c.Start, c.End = c.End, c.Start }, ErrInvalidTimeRange},
		{"should reject zero cash", func(c *BacktestConfig) { c.InitialCash = decimal.Zero }, ErrNonPositiveCash},
		{"should reject negative commission", func(c *BacktestConfig) { c.CommissionPerShare = decimal.NewFromInt(-1) }, ErrNegativeCommission},
		{"should reject negative slippage", func(c *BacktestConfig) { c.SlippagePercent = decimal.NewFromInt(-1) }, ErrNegativeSlippage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			_, err := NewEngine(cfg, &scriptStrategy{}, &mockDataStore{}, nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewEngine() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEngine_DataErrorsSurface(t *testing.T) {
	cfg := defaultConfig()

	t.Run("unknown asset", func(t *testing.T) {
		eng, err := NewEngine(cfg, &scriptStrategy{}, &mockDataStore{}, nil)
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		eng.SetProgress(false)
		if _, err := eng.Run(context.Background()); err == nil {
			t.Error("Run() error = nil, want asset lookup error")
		}
	})

	t.Run("bar fetch failure", func(t *testing.T) {
		store := &mockDataStore{
			assets:  map[string]*types.Asset{"AAPL": {Id: 1, Ticker: "AAPL"}},
			barsErr: errors.New("no bars found in datasource"),
		}
		eng, err := NewEngine(cfg, &scriptStrategy{}, store, nil)
		if err != nil {
			t.Fatalf("NewEngine() error = %v", err)
		}
		eng.SetProgress(false)
		if _, err := eng.Run(context.Background()); err == nil {
			t.Error("Run() error = nil, want bar fetch error")
		}
	})
}
