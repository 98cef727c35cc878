package main

import (
	"backsim/internal/config"
	"backsim/internal/engine"
	"backsim/internal/repository"
	"backsim/internal/util"
	"backsim/strategies/smacross"
	"backsim/types"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("backtest failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	db, err := repository.NewDatabase(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	btCfg, err := buildBacktestConfig(&cfg.Backtest)
	if err != nil {
		return err
	}

	strat, err := buildStrategy(&cfg.Strategy)
	if err != nil {
		return err
	}

	reporting := &engine.ReportingConfig{
		PrintTrades:   cfg.Reporting.PrintTrades,
		TradesCSVPath: cfg.Reporting.TradesCSVPath,
		EquityCSVPath: cfg.Reporting.EquityCSVPath,
	}

	eng, err := engine.NewEngine(btCfg, strat, &db, reporting)
	if err != nil {
		return err
	}

	logger.Info("starting backtest",
		"symbols", btCfg.Symbols,
		"timeframe", string(btCfg.Timeframe),
		"start", btCfg.Start,
		"end", btCfg.End,
	)

	report, err := eng.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Println(report)
	return nil
}

func buildBacktestConfig(bt *config.Backtest) (*engine.BacktestConfig, error) {
	timeframe, err := types.ParseTimeframe(bt.Timeframe)
	if err != nil {
		return nil, err
	}
	start, err := time.Parse(time.RFC3339, bt.Start)
	if err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, bt.End)
	if err != nil {
		return nil, fmt.Errorf("parse end time: %w", err)
	}
	initialCash, err := decimal.NewFromString(bt.InitialCash)
	if err != nil {
		return nil, fmt.Errorf("parse initial_cash: %w", err)
	}
	commission, err := parseOptionalDecimal(bt.CommissionPerShare, "commission_per_share")
	if err != nil {
		return nil, err
	}
	slippage, err := parseOptionalDecimal(bt.SlippagePercent, "slippage_percent")
	if err != nil {
		return nil, err
	}
	cashFloor, err := parseOptionalDecimal(bt.CashFloor, "cash_floor")
	if err != nil {
		return nil, err
	}

	return &engine.BacktestConfig{
		Symbols:            bt.Symbols,
		Timeframe:          timeframe,
		Start:              start,
		End:                end,
		InitialCash:        initialCash,
		CommissionPerShare: commission,
		SlippagePercent:    slippage,
		CashFloor:          cashFloor,
		AllowShortSelling:  bt.AllowShortSelling,
	}, nil
}

func parseOptionalDecimal(s, name string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse %s: %w", name, err)
	}
	return d, nil
}

func buildStrategy(sc *config.Strategy) (engine.Strategy, error) {
	switch sc.Name {
	case "smacross", "":
		fast, slow := sc.FastPeriod, sc.SlowPeriod
		if fast <= 0 {
			fast = 10
		}
		if slow <= fast {
			slow = fast * 3
		}
		return smacross.New(fast, slow, decimal.NewFromInt(90)), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", sc.Name)
	}
}
