// Package leaderboard ranks accounts in a snapshot and summarises their values.
package leaderboard

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// Entry is one ranked account.
type Entry struct {
	Rank     int              `json:"rank"`
	Name     string           `json:"name"`
	Value    float64          `json:"value"`
	ZScore   float64          `json:"z_score"`
	URL      string           `json:"url"`
	Holdings []models.Holding `json:"holdings"`
}

// Stats summarises account values.
type Stats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	StdDev float64 `json:"std_dev"` // sample standard deviation
}

// Board is a ranked snapshot.
type Board struct {
	Entries []Entry `json:"entries"`
	Stats   Stats   `json:"stats"`
}

// Build ranks accounts by value, highest first. Equal values rank by name.
// Z-scores use the population standard deviation and are zero when all
// values are equal.
func Build(snapshots models.SnapshotMap) *Board {
	board := &Board{Entries: make([]Entry, 0, len(snapshots))}
	for name, s := range snapshots {
		board.Entries = append(board.Entries, Entry{
			Name:     name,
			Value:    s.Value,
			URL:      s.URL,
			Holdings: s.Holdings,
		})
	}
	if len(board.Entries) == 0 {
		return board
	}

	sort.Slice(board.Entries, func(i, j int) bool {
		a, b := board.Entries[i], board.Entries[j]
		if a.Value != b.Value {
			return a.Value > b.Value
		}
		return a.Name < b.Name
	})

	values := make([]float64, len(board.Entries))
	for i := range board.Entries {
		board.Entries[i].Rank = i + 1
		values[i] = board.Entries[i].Value
	}

	mean := stat.Mean(values, nil)
	popStd := math.Sqrt(stat.PopVariance(values, nil))
	for i := range board.Entries {
		if popStd > 0 {
			board.Entries[i].ZScore = (board.Entries[i].Value - mean) / popStd
		}
	}

	ascending := make([]float64, len(values))
	copy(ascending, values)
	sort.Float64s(ascending)

	board.Stats = Stats{
		Count:  len(values),
		Mean:   mean,
		Q1:     quantile(ascending, 0.25),
		Median: quantile(ascending, 0.5),
		Q3:     quantile(ascending, 0.75),
	}
	if len(values) > 1 {
		board.Stats.StdDev = stat.StdDev(values, nil)
	}
	return board
}

// quantile interpolates linearly between closest ranks (R type 7) over
// ascending data.
func quantile(ascending []float64, p float64) float64 {
	n := len(ascending)
	if n == 0 {
		return 0
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	return ascending[lo] + (h-float64(lo))*(ascending[hi]-ascending[lo])
}

// Top returns the highest ranked entry.
func (b *Board) Top() (Entry, bool) {
	if len(b.Entries) == 0 {
		return Entry{}, false
	}
	return b.Entries[0], true
}

// Find returns the entry whose name matches case-insensitively.
func (b *Board) Find(name string) (Entry, bool) {
	name = strings.TrimSpace(name)
	for _, e := range b.Entries {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// FormatHoldings renders holdings one per line as "TICKER: price (change)".
func FormatHoldings(holdings []models.Holding) string {
	if len(holdings) == 0 {
		return "No holdings"
	}
	lines := make([]string, len(holdings))
	for i, h := range holdings {
		lines[i] = fmt.Sprintf("%s: %s (%s)", h.Ticker, h.LastPrice, h.PercentChange)
	}
	return strings.Join(lines, "\n")
}
