// Package acquire runs bounded, concurrent snapshot acquisition over a list of portfolios.
package acquire

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/interfaces"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
	"github.com/bobmcallan/vire-leaderboard/internal/normalize"
)

// Options bounds the orchestrator's concurrency and per-unit timeouts.
type Options struct {
	Concurrency    int
	AttemptTimeout time.Duration // navigate + scrape + normalize, per attempt
	LoginTimeout   time.Duration
	ScreenshotDir  string // diagnostic screenshots of dropped portfolios; empty disables
}

// Summary reports the outcome of one run.
type Summary struct {
	Attempted  int
	Succeeded  []string // portfolio URLs
	Failed     []string // portfolio URLs
	Collisions []string // account names written by more than one portfolio
	Duration   time.Duration
}

// Orchestrator acquires snapshots for many portfolios with at most
// Options.Concurrency units in flight. Each unit owns its own page and session.
type Orchestrator struct {
	browser   interfaces.Browser
	sessions  interfaces.SessionStore
	creds     models.Credentials
	opts      Options
	logger    *common.Logger
	normalize func(*models.RawPortfolioPage, string) (models.AccountSnapshot, error)
}

// NewOrchestrator creates an Orchestrator. sessions may be nil to always log in.
func NewOrchestrator(browser interfaces.Browser, sessions interfaces.SessionStore, creds models.Credentials, opts Options, logger *common.Logger) *Orchestrator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Orchestrator{
		browser:   browser,
		sessions:  sessions,
		creds:     creds,
		opts:      opts,
		logger:    logger,
		normalize: normalize.Account,
	}
}

// Run acquires every portfolio and returns the merged SnapshotMap.
// Failures are resolved per unit: a portfolio that fails its attempt and its
// single retry is absent from the map. Run never returns an error; an empty
// portfolio list yields an empty map.
func (o *Orchestrator) Run(ctx context.Context, portfolios []string) (models.SnapshotMap, Summary) {
	start := time.Now()
	result := make(models.SnapshotMap, len(portfolios))
	summary := Summary{Attempted: len(portfolios)}

	if len(portfolios) == 0 {
		o.logger.Info().Msg("No portfolios to acquire")
		return result, summary
	}

	o.logger.Info().
		Int("portfolios", len(portfolios)).
		Int("concurrency", o.opts.Concurrency).
		Msg("Acquisition run starting")

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(o.opts.Concurrency)

	for _, url := range portfolios {
		g.Go(func() error {
			snap, err := o.acquire(ctx, url)

			var previous string
			collided := false

			mu.Lock()
			if err != nil {
				summary.Failed = append(summary.Failed, url)
			} else {
				if prev, exists := result[snap.Name]; exists {
					collided = true
					previous = prev.URL
					summary.Collisions = append(summary.Collisions, snap.Name)
				}
				result[snap.Name] = snap
				summary.Succeeded = append(summary.Succeeded, url)
			}
			mu.Unlock()

			if collided {
				o.logger.Warn().
					Str("account", snap.Name).
					Str("previous_url", previous).
					Str("url", url).
					Msg("Account name already acquired, later result replaces earlier one")
			}
			return nil
		})
	}

	_ = g.Wait()

	sort.Strings(summary.Succeeded)
	sort.Strings(summary.Failed)
	sort.Strings(summary.Collisions)
	summary.Duration = time.Since(start)

	o.logger.Info().
		Int("attempted", summary.Attempted).
		Int("succeeded", len(summary.Succeeded)).
		Int("failed", len(summary.Failed)).
		Int("accounts", len(result)).
		Dur("duration", summary.Duration).
		Msg("Acquisition run complete")

	return result, summary
}
