package mcp

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bobmcallan/vire-leaderboard/internal/leaderboard"
	"github.com/bobmcallan/vire-leaderboard/internal/snapshot"
)

func formatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// formatBoard renders the top limit entries and the summary statistics as markdown.
func formatBoard(board *leaderboard.Board, limit int) string {
	var sb strings.Builder

	sb.WriteString("# Leaderboard\n\n")
	if len(board.Entries) == 0 {
		sb.WriteString("No accounts in this snapshot.\n")
		return sb.String()
	}

	sb.WriteString("| Rank | Name | Account Value | Z-Score | Holdings |\n")
	sb.WriteString("|------|------|---------------|---------|----------|\n")
	for i, e := range board.Entries {
		if i >= limit {
			break
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.2f | %d |\n",
			e.Rank, e.Name, formatMoney(e.Value), e.ZScore, len(e.Holdings)))
	}
	if len(board.Entries) > limit {
		sb.WriteString(fmt.Sprintf("\n_%d more not shown_\n", len(board.Entries)-limit))
	}

	st := board.Stats
	sb.WriteString("\n## Statistics\n\n")
	sb.WriteString(fmt.Sprintf("**Accounts:** %d\n", st.Count))
	sb.WriteString(fmt.Sprintf("**Mean:** %s\n", formatMoney(st.Mean)))
	sb.WriteString(fmt.Sprintf("**Median:** %s\n", formatMoney(st.Median)))
	sb.WriteString(fmt.Sprintf("**Q1 / Q3:** %s / %s\n", formatMoney(st.Q1), formatMoney(st.Q3)))
	sb.WriteString(fmt.Sprintf("**Std Dev:** %s\n", formatMoney(st.StdDev)))
	return sb.String()
}

// formatEntry renders one account with its holdings.
func formatEntry(e leaderboard.Entry, total int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", e.Name))
	sb.WriteString(fmt.Sprintf("**Rank:** %d of %d\n", e.Rank, total))
	sb.WriteString(fmt.Sprintf("**Money In Account:** %s\n", formatMoney(e.Value)))
	sb.WriteString(fmt.Sprintf("**Z-Score:** %.2f\n", e.ZScore))
	if e.URL != "" {
		sb.WriteString(fmt.Sprintf("**Portfolio:** %s\n", e.URL))
	}
	sb.WriteString("\n## Current Holdings\n\n")
	sb.WriteString(leaderboard.FormatHoldings(e.Holdings))
	sb.WriteString("\n")
	return sb.String()
}

// formatHistory lists entries newest first.
func formatHistory(entries []snapshot.Entry, limit int) string {
	if len(entries) == 0 {
		return "No snapshots stored."
	}

	var sb strings.Builder
	sb.WriteString("| Snapshot | Time | Bucket |\n")
	sb.WriteString("|----------|------|--------|\n")
	shown := 0
	for i := len(entries) - 1; i >= 0 && shown < limit; i-- {
		e := entries[i]
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			filepath.Base(e.Path), e.At.Format("2006-01-02 15:04 MST"), e.Bucket))
		shown++
	}
	if len(entries) > limit {
		sb.WriteString(fmt.Sprintf("\n_%d older snapshots not shown_\n", len(entries)-limit))
	}
	return sb.String()
}

// formatHoldingChanges renders per-account bought and sold tickers between two snapshots.
func formatHoldingChanges(changes []leaderboard.HoldingChange, older, newer snapshot.Entry) string {
	var sb strings.Builder

	sb.WriteString("# Holding Changes\n\n")
	sb.WriteString(fmt.Sprintf("%s → %s\n\n", older.At.Format("2006-01-02 15:04"), newer.At.Format("2006-01-02 15:04 MST")))
	if len(changes) == 0 {
		sb.WriteString("No stock changes detected.\n")
		return sb.String()
	}

	sb.WriteString("| Name | Bought | Sold |\n")
	sb.WriteString("|------|--------|------|\n")
	for _, c := range changes {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", c.Name, joinOrDash(c.Bought), joinOrDash(c.Sold)))
	}
	return sb.String()
}

func joinOrDash(tickers []string) string {
	if len(tickers) == 0 {
		return "-"
	}
	return strings.Join(tickers, ", ")
}
