package leaderboard

import (
	"sort"

	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// HoldingChange lists the tickers one account added and dropped between two
// snapshots.
type HoldingChange struct {
	Name   string   `json:"name"`
	Bought []string `json:"bought,omitempty"`
	Sold   []string `json:"sold,omitempty"`
}

// HoldingChanges compares ticker sets per account. Only accounts present in
// both snapshots are compared, and accounts whose tickers did not change are
// left out. Results are ordered by name, tickers alphabetically.
func HoldingChanges(prev, cur models.SnapshotMap) []HoldingChange {
	var changes []HoldingChange
	for name, now := range cur {
		before, ok := prev[name]
		if !ok {
			continue
		}
		was, is := tickers(before.Holdings), tickers(now.Holdings)
		c := HoldingChange{Name: name, Bought: missingFrom(is, was), Sold: missingFrom(was, is)}
		if len(c.Bought) > 0 || len(c.Sold) > 0 {
			changes = append(changes, c)
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	return changes
}

func tickers(holdings []models.Holding) map[string]struct{} {
	set := make(map[string]struct{}, len(holdings))
	for _, h := range holdings {
		set[h.Ticker] = struct{}{}
	}
	return set
}

// missingFrom returns the keys of a that b lacks, sorted.
func missingFrom(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
