package engine

import (
	"backsim/types"
	"context"
	"fmt"
	"os"
)

// Engine wires a data store, a strategy, and the simulation together for
// one run: load bars, replay them, produce the report.
type Engine struct {
	db              dataStore
	cfg             *BacktestConfig
	strategy        Strategy
	reportingConfig *ReportingConfig
	progress        bool

	backtester *backtester
}

// NewEngine validates the configuration fail-fast; no bar is ever processed
// with an invalid config.
func NewEngine(cfg *BacktestConfig, strat Strategy, db dataStore, reporting *ReportingConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest config: %w", err)
	}
	if reporting == nil {
		reporting = &ReportingConfig{}
	}
	return &Engine{
		db:              db,
		cfg:             cfg,
		strategy:        strat,
		reportingConfig: reporting,
		progress:        true,
	}, nil
}

// SetProgress toggles the terminal progress bar, on by default.
func (e *Engine) SetProgress(enabled bool) {
	e.progress = enabled
}

// Run loads data for every configured symbol, replays the merged stream,
// and returns the performance report. Data errors surface here, before the
// simulation starts; order rejections during the run never do.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	feeds, err := e.loadData(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := newBarStream(feeds)
	if err != nil {
		return nil, err
	}

	broker := NewSimBroker(e.cfg.CommissionPerShare, e.cfg.SlippagePercent, e.cfg.AllowShortSelling)
	portfolio := newPortfolio(e.cfg.InitialCash, e.cfg.AllowShortSelling)
	e.backtester = newBacktester(e.cfg, e.strategy, broker, portfolio, stream, e.progress)

	if err := e.backtester.run(); err != nil {
		return nil, err
	}

	report := generateReport(
		portfolio.snapshots,
		portfolio.trades,
		e.cfg.Timeframe,
		e.cfg.InitialCash,
		portfolio.totalCommission,
		len(e.backtester.rejected),
	)
	report.RealizedPnL = portfolio.realizedPnL
	for _, pos := range portfolio.positions {
		snap := snapshotOf(pos)
		report.OpenPositionsValue = report.OpenPositionsValue.Add(snap.MarketValue())
		report.UnrealizedPnL = report.UnrealizedPnL.Add(snap.UnrealizedPnL())
	}

	if err := e.writeReports(portfolio); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Engine) loadData(ctx context.Context) (map[string][]types.Bar, error) {
	feeds := make(map[string][]types.Bar, len(e.cfg.Symbols))
	for _, symbol := range e.cfg.Symbols {
		asset, err := e.db.GetAssetByTicker(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("load asset %s: %w", symbol, err)
		}
		bars, err := e.db.GetBars(ctx, asset.Id, symbol, e.cfg.Timeframe, e.cfg.Start, e.cfg.End)
		if err != nil {
			return nil, fmt.Errorf("load bars %s: %w", symbol, err)
		}
		feeds[symbol] = bars
	}
	return feeds, nil
}

func (e *Engine) writeReports(p *portfolio) error {
	if e.reportingConfig.PrintTrades {
		if err := writeTradesCSV(os.Stdout, p.trades); err != nil {
			return err
		}
	}
	if path := e.reportingConfig.TradesCSVPath; path != "" {
		if err := writeTradesCSVFile(path, p.trades); err != nil {
			return err
		}
	}
	if path := e.reportingConfig.EquityCSVPath; path != "" {
		if err := writeEquityCSVFile(path, p.snapshots); err != nil {
			return err
		}
	}
	return nil
}
