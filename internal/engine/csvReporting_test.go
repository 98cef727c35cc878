package engine

import (
	"backsim/types"
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestWriteTradesCSV(t *testing.T) {
	trades := []types.Trade{
		{
			Symbol:      "AAPL",
			Side:        types.SideTypeBuy,
			Quantity:    10,
			EntryTime:   dayN(0),
			ExitTime:    dayN(2),
			EntryPrice:  decimal.NewFromInt(100),
			ExitPrice:   decimal.NewFromInt(105),
			RealizedPnL: decimal.NewFromInt(50),
			Holding:     48 * time.Hour,
		},
	}

	var buf bytes.Buffer
	if err := writeTradesCSV(&buf, trades); err != nil {
		t.Fatalf("writeTradesCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want header + 1 row", len(records))
	}
	if records[0][0] != "symbol" || records[0][7] != "realized_pnl" {
		t.Errorf("header = %v", records[0])
	}
	row := records[1]
	if row[0] != "AAPL" || row[1] != "BUY" || row[2] != "10" {
		t.Errorf("row = %v", row)
	}
	if row[3] != dayN(0).Format(time.RFC3339) {
		t.Errorf("entry_time = %q, want RFC3339", row[3])
	}
	if row[7] != "50" {
		t.Errorf("realized_pnl = %q, want 50", row[7])
	}
}

func TestWriteEquityCSV(t *testing.T) {
	snaps := equityCurve(100000, 100100)

	var buf bytes.Buffer
	if err := writeEquityCSV(&buf, snaps); err != nil {
		t.Fatalf("writeEquityCSV() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header + 2 rows", len(records))
	}
	if records[1][2] != "100000" || records[2][2] != "100100" {
		t.Errorf("equity column = %q, %q", records[1][2], records[2][2])
	}
}
