package scraper

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/interfaces"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// Browser owns one Chrome process (local or remote). Each Open call creates a
// separate browser context with its own cookie jar, so pages never share state.
type Browser struct {
	opts       Options
	logger     *common.Logger
	browserCtx context.Context
	cancel     context.CancelFunc
}

// NewBrowser starts Chrome, or connects to RemoteURL when set.
func NewBrowser(ctx context.Context, opts Options, logger *common.Logger) (*Browser, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execAllocatorOptions(opts)...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.Info().
		Bool("headless", opts.Headless).
		Str("remote_url", opts.RemoteURL).
		Msg("Browser started")

	return &Browser{
		opts:       opts,
		logger:     logger,
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
	}, nil
}

// execAllocatorOptions returns the local Chrome flags: quiet, no background
// throttling, no crash reporting, no caching.
func execAllocatorOptions(opts Options) []chromedp.ExecAllocatorOption {
	out := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-crash-reporter", true),
		chromedp.Flag("disable-oopr-debug-crash-dump", true),
		chromedp.Flag("no-crash-upload", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-low-res-tiling", true),
		chromedp.Flag("disable-cache", true),
		chromedp.Flag("log-level", "3"),
		chromedp.Flag("silent", true),
	)
	if opts.UserAgent != "" {
		out = append(out, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Width > 0 && opts.Height > 0 {
		out = append(out, chromedp.WindowSize(opts.Width, opts.Height))
	}
	return out
}

// Open creates an isolated page for one acquisition unit.
func (b *Browser) Open(ctx context.Context) (interfaces.Page, error) {
	return b.open(ctx)
}

func (b *Browser) open(ctx context.Context) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewError(models.KindOf(err), "open", "", err)
	}

	pageCtx, cancel := chromedp.NewContext(b.browserCtx, chromedp.WithNewBrowserContext())
	jsErrors := listenScriptErrors(pageCtx)

	if err := chromedp.Run(pageCtx); err != nil {
		cancel()
		return nil, models.NewError(models.KindOther, "open", "", err)
	}

	return &Page{
		ctx:      pageCtx,
		cancel:   cancel,
		opts:     b.opts,
		logger:   b.logger,
		jsErrors: jsErrors,
	}, nil
}

// Close shuts the browser down. Open pages become unusable.
func (b *Browser) Close() error {
	b.cancel()
	return nil
}
