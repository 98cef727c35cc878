package engine

import (
	"backsim/types"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"
)

// writeTradesCSVFile writes the closed-trade log to a CSV file at the given path.
func writeTradesCSVFile(path string, trades []types.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return writeTradesCSV(f, trades)
}

// writeTradesCSV writes trades to any io.Writer as CSV.
// You can pass os.Stdout for debugging, or a file.
func writeTradesCSV(w io.Writer, trades []types.Trade) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"symbol",
		"side",
		"quantity",
		"entry_time", // RFC3339
		"entry_price",
		"exit_time",
		"exit_price",
		"realized_pnl",
		"holding",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, tr := range trades {
		record := []string{
			tr.Symbol,
			string(tr.Side),
			fmt.Sprintf("%d", tr.Quantity),
			tr.EntryTime.Format(time.RFC3339),
			tr.EntryPrice.String(),
			tr.ExitTime.Format(time.RFC3339),
			tr.ExitPrice.String(),
			tr.RealizedPnL.String(),
			tr.Holding.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// writeEquityCSVFile writes the equity curve to a CSV file at the given path.
func writeEquityCSVFile(path string, snapshots []types.PortfolioSnapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create equity file: %w", err)
	}
	defer f.Close()

	return writeEquityCSV(f, snapshots)
}

func writeEquityCSV(w io.Writer, snapshots []types.PortfolioSnapshot) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"timestamp", "cash", "equity"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, snap := range snapshots {
		record := []string{
			snap.Time.Format(time.RFC3339),
			snap.Cash.String(),
			snap.Equity.String(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
