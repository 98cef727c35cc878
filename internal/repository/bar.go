package repository

import (
	"backsim/types"
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

var bucketToInterval = map[types.Timeframe]string{
	types.OneMinute:      "1 minute",
	types.FiveMinutes:    "5 minutes",
	types.FifteenMinutes: "15 minutes",
	types.Hour:           "1 hour",
	types.Day:            "1 day",
}

// GetBars aggregates the raw one-minute candles into bars of the requested
// timeframe, ordered by bucket timestamp.
func (db *Database) GetBars(ctx context.Context, assetId int, ticker string, timeframe types.Timeframe, start, end time.Time) ([]types.Bar, error) {
	bucket, ok := bucketToInterval[timeframe]
	if !ok {
		return nil, ErrTimeframeNotSupported
	}
	args := getAggregatesParams{
		TimeBucket: bucket,
		AssetID:    int32(assetId),
		StartTime:  &start,
		EndTime:    &end,
	}
	rows, err := db.bars.GetAggregates(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoBars
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoBars
	}
	return convertBars(rows, timeframe, ticker), nil
}

func convertBars(rows []aggregateRow, timeframe types.Timeframe, ticker string) []types.Bar {
	var bars []types.Bar
	for _, dao := range rows {
		bars = append(bars, types.Bar{
			Symbol:    ticker,
			Open:      dao.Open,
			Close:     dao.Close,
			High:      dao.High,
			Low:       dao.Low,
			Volume:    dao.Volume,
			Timeframe: timeframe,
			Timestamp: *dao.Bucket,
		})
	}
	return bars
}
