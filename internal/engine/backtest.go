package engine

import (
	"backsim/types"
	"fmt"

	"github.com/schollz/progressbar/v3"
)

type runState int

const (
	stateNotStarted runState = iota
	stateRunning
	stateStopped
)

// backtester drives one simulation run over a merged bar stream. It is
// strictly single-threaded: resolution, strategy callbacks, and portfolio
// updates for a bar all complete before the next bar is considered.
type backtester struct {
	cfg       *BacktestConfig
	strategy  Strategy
	broker    broker
	portfolio *portfolio
	ctx       *Context
	stream    *barStream

	state    runState
	rejected []*types.Order
	progress bool
}

func newBacktester(cfg *BacktestConfig, strat Strategy, b broker, p *portfolio, stream *barStream, progress bool) *backtester {
	return &backtester{
		cfg:       cfg,
		strategy:  strat,
		broker:    b,
		portfolio: p,
		ctx:       newContext(b, p, cfg.CommissionPerShare),
		stream:    stream,
		state:     stateNotStarted,
		progress:  progress,
	}
}

// run replays the merged stream to completion or early termination. For
// each bar, in order: pending orders are resolved against it (so an order
// from bar N fills no earlier than bar N+1), the position is marked to the
// bar close, the strategy sees the bar, and once the timestamp group ends a
// portfolio snapshot is appended.
func (b *backtester) run() error {
	if b.state != stateNotStarted {
		return fmt.Errorf("backtester already ran")
	}
	b.state = stateRunning

	if err := b.strategy.OnStart(b.ctx); err != nil {
		b.state = stateStopped
		return fmt.Errorf("strategy start: %w", err)
	}

	var bar *progressbar.ProgressBar
	if b.progress {
		bar = initProgressBar(b.stream.Len())
	}

	for {
		cur, ok := b.stream.Next()
		if !ok {
			break
		}
		b.ctx.observe(cur)

		// Resolve before the strategy sees the bar; fills use this
		// bar's open, the strategy acts on its close.
		fills, rejected := b.broker.Resolve(cur, b.portfolio.view(cur.Timestamp))
		b.rejected = append(b.rejected, rejected...)
		for _, fill := range fills {
			if err := b.portfolio.applyFill(fill); err != nil {
				return fmt.Errorf("apply fill for %s: %w", fill.Symbol, err)
			}
			b.strategy.OnFill(b.ctx, fill)
		}

		b.portfolio.markToMarket(cur.Symbol, cur.Close)
		b.strategy.OnBar(b.ctx, cur)

		// One snapshot per distinct timestamp: only when the next bar
		// moves time forward (or the stream ends).
		if next, more := b.stream.Peek(); !more || next.Timestamp.After(cur.Timestamp) {
			b.portfolio.snapshot(cur.Timestamp)

			if b.cfg.CashFloor.IsPositive() && b.portfolio.equity().LessThan(b.cfg.CashFloor) {
				break
			}
		}

		if bar != nil {
			bar.Add(1)
		}
	}

	b.state = stateStopped
	b.strategy.OnStop(b.ctx)
	return nil
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
