// Package market answers trading-hours questions for the exchange timezone.
package market

import (
	"fmt"
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/config"
)

// Snapshot buckets.
const (
	BucketInTime    = "in_time"
	BucketOutOfTime = "out_of_time"
)

// Hours is the weekday trading window [Open, Close) in Location.
type Hours struct {
	Location *time.Location
	Open     time.Duration // offset from local midnight
	Close    time.Duration
}

// NewHours builds Hours from config.
func NewHours(cfg config.MarketConfig) (*Hours, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid market timezone %q: %w", cfg.Timezone, err)
	}
	open, err := config.ParseClock(cfg.Open)
	if err != nil {
		return nil, fmt.Errorf("market open: %w", err)
	}
	closing, err := config.ParseClock(cfg.Close)
	if err != nil {
		return nil, fmt.Errorf("market close: %w", err)
	}
	if closing <= open {
		return nil, fmt.Errorf("market close %s must be after open %s", cfg.Close, cfg.Open)
	}
	return &Hours{Location: loc, Open: open, Close: closing}, nil
}

// Local converts t to the exchange timezone.
func (h *Hours) Local(t time.Time) time.Time {
	return t.In(h.Location)
}

// IsOpen reports whether t falls on a weekday inside the trading window.
func (h *Hours) IsOpen(t time.Time) bool {
	local := h.Local(t)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.Location)
	offset := local.Sub(midnight)
	return offset >= h.Open && offset < h.Close
}

// Bucket returns the snapshot directory name for a run at t.
func (h *Hours) Bucket(t time.Time) string {
	if h.IsOpen(t) {
		return BucketInTime
	}
	return BucketOutOfTime
}

// ShouldScrape reports whether a batch at t scrapes: inside trading hours or forced.
func (h *Hours) ShouldScrape(t time.Time, force bool) bool {
	return force || h.IsOpen(t)
}
