// Package app wires configuration, browser, acquisition, storage and
// notification into the batch run.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/vire-leaderboard/internal/acquire"
	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/config"
	"github.com/bobmcallan/vire-leaderboard/internal/interfaces"
	"github.com/bobmcallan/vire-leaderboard/internal/leaderboard"
	"github.com/bobmcallan/vire-leaderboard/internal/market"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
	"github.com/bobmcallan/vire-leaderboard/internal/notify"
	"github.com/bobmcallan/vire-leaderboard/internal/portfolios"
	"github.com/bobmcallan/vire-leaderboard/internal/scheduler"
	"github.com/bobmcallan/vire-leaderboard/internal/scraper"
	"github.com/bobmcallan/vire-leaderboard/internal/session"
	"github.com/bobmcallan/vire-leaderboard/internal/snapshot"
)

// Browser is a page source that holds a browser process until closed.
type Browser interface {
	interfaces.Browser
	Discover(ctx context.Context, leaderboardURL, prefix string, creds models.Credentials) ([]string, error)
	Close() error
}

// BrowserFactory starts a browser for one batch, discovery or probe.
type BrowserFactory func(ctx context.Context) (Browser, error)

// App holds all application components and dependencies.
type App struct {
	Config   *config.Config
	Logger   *common.Logger
	Hours    *market.Hours
	Sessions *session.FileStore
	Writer   *snapshot.Writer
	Reader   *snapshot.Reader
	Notifier *notify.Notifier

	newBrowser BrowserFactory
	now        func() time.Time
}

// Result describes one batch run.
type Result struct {
	RunID     string
	At        time.Time
	Skipped   bool // outside trading hours and not forced
	Snapshots models.SnapshotMap
	Summary   acquire.Summary
}

// New initializes the application with all dependencies.
func New(ctx context.Context, cfg *config.Config, logger *common.Logger) (*App, error) {
	hours, err := market.NewHours(cfg.Market)
	if err != nil {
		return nil, fmt.Errorf("invalid market configuration: %w", err)
	}

	var mirrors []interfaces.SnapshotSink
	if cfg.Snapshot.S3.Enabled() {
		s3Sink, err := snapshot.NewS3Sink(ctx, cfg.Snapshot.S3, hours)
		if err != nil {
			return nil, fmt.Errorf("failed to configure S3 mirror: %w", err)
		}
		mirrors = append(mirrors, s3Sink)
		logger.Info().
			Str("bucket", cfg.Snapshot.S3.Bucket).
			Str("prefix", cfg.Snapshot.S3.Prefix).
			Msg("S3 snapshot mirror enabled")
	}

	var senders []notify.Sender
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Hours:    hours,
		Sessions: session.NewFileStore(cfg.Session.Path, cfg.Session.GetMaxAge()),
		Writer:   snapshot.NewWriter(snapshot.NewFileSink(cfg.Snapshot.Dir, hours), logger, mirrors...),
		Reader:   snapshot.NewReader(cfg.Snapshot.Dir, hours.Location),
		Notifier: notify.NewNotifier(logger, senders...),
		now:      time.Now,
	}
	a.newBrowser = a.startBrowser

	logger.Debug().
		Str("snapshot_dir", cfg.Snapshot.Dir).
		Str("session_path", cfg.Session.Path).
		Bool("notify", a.Notifier.Enabled()).
		Msg("application initialization complete")

	return a, nil
}

func (a *App) startBrowser(ctx context.Context) (Browser, error) {
	return scraper.NewBrowser(ctx, scraper.OptionsFromConfig(a.Config), a.Logger)
}

func (a *App) credentials() models.Credentials {
	return models.Credentials{
		Email:    a.Config.Credentials.Email,
		Password: a.Config.Credentials.Password,
	}
}

// RunBatch performs one scheduled run: acquire every listed portfolio, write
// the snapshot, then announce the top account and any holding changes since
// the previous in-time snapshot. Outside trading hours scraping
// is skipped unless forced, and the announcement uses the latest stored
// snapshot instead.
func (a *App) RunBatch(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	logger := a.Logger.WithCorrelationId(runID)
	at := a.now()
	res := &Result{RunID: runID, At: at}

	if !a.Hours.ShouldScrape(at, a.Config.Schedule.Force) {
		res.Skipped = true
		logger.Info().
			Str("local_time", a.Hours.Local(at).Format("Mon 15:04")).
			Msg("outside trading hours, skipping scrape")
		a.announceLatest(ctx, logger, at)
		return res, nil
	}

	urls, err := portfolios.Load(a.Config.Portfolios.File)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Int("portfolios", len(urls)).
		Int("concurrency", a.Config.Acquire.Concurrency).
		Bool("forced", !a.Hours.IsOpen(at)).
		Msg("batch starting")

	if len(urls) == 0 {
		res.Snapshots = models.SnapshotMap{}
		logger.Warn().Str("file", a.Config.Portfolios.File).Msg("no portfolios listed, nothing to scrape")
		return res, nil
	}

	browser, err := a.newBrowser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close browser")
		}
	}()

	orch := acquire.NewOrchestrator(browser, a.Sessions, a.credentials(), acquire.Options{
		Concurrency:    a.Config.Acquire.Concurrency,
		AttemptTimeout: a.Config.Acquire.GetAttemptTimeout(),
		LoginTimeout:   a.Config.Acquire.GetLoginTimeout(),
		ScreenshotDir:  a.Config.Acquire.ScreenshotDir,
	}, logger)

	res.Snapshots, res.Summary = orch.Run(ctx, urls)

	// An empty map would replace a good latest file with nothing.
	if len(res.Snapshots) == 0 {
		a.announceLatest(ctx, logger, at)
		return res, fmt.Errorf("no portfolios acquired (%d attempted)", res.Summary.Attempted)
	}

	// Read before writing, so the newest in-time file is still the previous run.
	prev, hasPrev := a.previousInTime(logger, at)

	if err := a.Writer.Write(ctx, at, res.Snapshots); err != nil {
		return res, fmt.Errorf("failed to write snapshot: %w", err)
	}

	if err := a.Notifier.NotifyTop(ctx, res.Snapshots, at); err != nil {
		logger.Warn().Err(err).Msg("notification failed")
	}
	if hasPrev {
		changes := leaderboard.HoldingChanges(prev, res.Snapshots)
		if err := a.Notifier.NotifyHoldingChanges(ctx, changes, at); err != nil {
			logger.Warn().Err(err).Msg("holding change notification failed")
		}
	}

	logger.Info().
		Int("accounts", len(res.Snapshots)).
		Int("failed", len(res.Summary.Failed)).
		Dur("duration", res.Summary.Duration).
		Msg("batch complete")
	return res, nil
}

func (a *App) announceLatest(ctx context.Context, logger *common.Logger, at time.Time) {
	if !a.Notifier.Enabled() {
		return
	}
	latest, err := a.Reader.Latest()
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		logger.Info().Msg("no stored snapshot to announce")
		return
	}
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read latest snapshot")
		return
	}
	if err := a.Notifier.NotifyTop(ctx, latest, at); err != nil {
		logger.Warn().Err(err).Msg("notification failed")
	}
}

// previousInTime loads the newest stored in-time snapshot when the run at at
// is itself in trading hours and someone is listening for changes.
func (a *App) previousInTime(logger *common.Logger, at time.Time) (models.SnapshotMap, bool) {
	if !a.Notifier.Enabled() || a.Hours.Bucket(at) != market.BucketInTime {
		return nil, false
	}
	history, err := a.Reader.History()
	if err != nil {
		logger.Warn().Err(err).Msg("failed to list snapshot history")
		return nil, false
	}
	inTime := snapshot.InTime(history)
	if len(inTime) == 0 {
		logger.Debug().Msg("no previous in-time snapshot, skipping holding changes")
		return nil, false
	}
	prev, err := snapshot.Load(inTime[len(inTime)-1].Path)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load previous snapshot")
		return nil, false
	}
	return prev, true
}

// Discover collects portfolio links from a leaderboard page and writes them
// to the configured portfolio list.
func (a *App) Discover(ctx context.Context, leaderboardURL string) ([]string, error) {
	b, err := a.newBrowser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := b.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close browser")
		}
	}()

	timeout := a.Config.Acquire.GetLoginTimeout() + a.Config.Acquire.GetAttemptTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	urls, err := b.Discover(ctx, leaderboardURL, a.Config.Portfolios.LinkPrefix, a.credentials())
	if err != nil {
		return nil, err
	}
	if err := portfolios.Write(a.Config.Portfolios.File, urls); err != nil {
		return nil, err
	}

	a.Logger.Info().
		Int("portfolios", len(urls)).
		Str("file", a.Config.Portfolios.File).
		Msg("portfolio list written")
	return urls, nil
}

// RunScheduled runs the batch on the configured cron schedule until ctx is
// cancelled. Overlapping runs are skipped.
func (a *App) RunScheduled(ctx context.Context) error {
	sched := scheduler.New(a.Hours.Location, a.Logger)
	err := sched.AddJob(a.Config.Schedule.Cron, scheduler.JobFunc{
		JobName: "leaderboard-batch",
		Fn: func(ctx context.Context) error {
			_, err := a.RunBatch(ctx)
			return err
		},
	})
	if err != nil {
		return err
	}

	sched.Run(ctx)
	return nil
}
