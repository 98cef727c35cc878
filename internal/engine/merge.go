package engine

import (
	"backsim/types"
	"errors"
	"fmt"
	"sort"
)

var ErrNoBarsForSymbol = errors.New("no bars for symbol in requested range")

// barStream merges per-symbol chronological bar slices into one sequence
// ordered by (timestamp, symbol). It is lazy and forward-only: a fresh
// stream is built for every run. Sparse calendars are fine — a symbol
// simply contributes nothing at timestamps it has no bar for.
type barStream struct {
	symbols []string // lexicographic, fixes the tie-break order
	feeds   map[string][]types.Bar
	cursors map[string]int
	total   int
}

// newBarStream validates and wraps the per-symbol feeds. Every requested
// symbol must have at least one bar; an empty feed is a data gap, detected
// here so the run fails before it starts.
func newBarStream(feeds map[string][]types.Bar) (*barStream, error) {
	symbols := make([]string, 0, len(feeds))
	total := 0
	for sym, bars := range feeds {
		if len(bars) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoBarsForSymbol, sym)
		}
		for i := 1; i < len(bars); i++ {
			if !bars[i].Timestamp.After(bars[i-1].Timestamp) {
				return nil, fmt.Errorf("bars for %s not strictly chronological at index %d", sym, i)
			}
		}
		symbols = append(symbols, sym)
		total += len(bars)
	}
	sort.Strings(symbols)

	cursors := make(map[string]int, len(feeds))
	return &barStream{
		symbols: symbols,
		feeds:   feeds,
		cursors: cursors,
		total:   total,
	}, nil
}

// Len returns the total number of bars the stream will yield.
func (s *barStream) Len() int {
	return s.total
}

// Peek returns the next bar without consuming it.
func (s *barStream) Peek() (types.Bar, bool) {
	sym, ok := s.nextSymbol()
	if !ok {
		return types.Bar{}, false
	}
	return s.feeds[sym][s.cursors[sym]], true
}

// Next consumes and returns the next bar in (timestamp, symbol) order.
func (s *barStream) Next() (types.Bar, bool) {
	sym, ok := s.nextSymbol()
	if !ok {
		return types.Bar{}, false
	}
	bar := s.feeds[sym][s.cursors[sym]]
	s.cursors[sym]++
	return bar, true
}

// nextSymbol finds the symbol whose current bar sorts first. Symbols are
// scanned in lexicographic order so equal timestamps break ties
// deterministically.
func (s *barStream) nextSymbol() (string, bool) {
	best := ""
	var bestBar types.Bar
	for _, sym := range s.symbols {
		i := s.cursors[sym]
		if i >= len(s.feeds[sym]) {
			continue
		}
		bar := s.feeds[sym][i]
		if best == "" || bar.Before(bestBar) {
			best = sym
			bestBar = bar
		}
	}
	return best, best != ""
}
