package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/interfaces"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

const screenshotTimeout = 10 * time.Second

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// acquire runs one unit of work: open a private page, authenticate, scrape
// and normalize, with exactly one retry after clearing state and forcing a
// fresh login.
func (o *Orchestrator) acquire(ctx context.Context, url string) (models.AccountSnapshot, error) {
	page, err := o.open(ctx, url)
	if err != nil {
		return models.AccountSnapshot{}, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			o.logger.Debug().Str("url", url).Err(err).Msg("Failed to close page")
		}
	}()

	snap, loggedIn, err := o.attempt(ctx, page, url, false)
	if err == nil {
		o.saveSession(ctx, page, url, loggedIn)
		return snap, nil
	}

	o.logger.Warn().
		Str("url", url).
		Str("kind", models.KindOf(err).String()).
		Err(err).
		Msg("Acquisition attempt failed, retrying with fresh login")

	snap, _, err = o.attempt(ctx, page, url, true)
	if err == nil {
		o.saveSession(ctx, page, url, true)
		return snap, nil
	}

	o.logger.Error().
		Str("url", url).
		Str("kind", models.KindOf(err).String()).
		Err(err).
		Msg("Acquisition retry failed, dropping portfolio from this run")
	o.captureScreenshot(ctx, page, url)

	return models.AccountSnapshot{}, err
}

// open creates the unit's page. A failed open is retried once.
func (o *Orchestrator) open(ctx context.Context, url string) (interfaces.Page, error) {
	page, err := o.browser.Open(ctx)
	if err == nil {
		return page, nil
	}
	o.logger.Warn().Str("url", url).Err(err).Msg("Failed to open browser context, retrying")

	page, err = o.browser.Open(ctx)
	if err != nil {
		o.logger.Error().Str("url", url).Err(err).Msg("Failed to open browser context, dropping portfolio from this run")
		return nil, err
	}
	return page, nil
}

// attempt performs one bounded authenticate + scrape + normalize pass.
// It reports whether an interactive login happened.
func (o *Orchestrator) attempt(ctx context.Context, page interfaces.Page, url string, retry bool) (models.AccountSnapshot, bool, error) {
	if o.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.AttemptTimeout)
		defer cancel()
	}

	var loggedIn bool
	var err error
	if retry {
		if err := page.Clear(ctx); err != nil {
			return models.AccountSnapshot{}, false, err
		}
		err = o.login(ctx, page)
		loggedIn = err == nil
	} else {
		loggedIn, err = o.authenticate(ctx, page, url)
	}
	if err != nil {
		return models.AccountSnapshot{}, false, err
	}

	raw, err := page.Scrape(ctx, url)
	if err != nil {
		return models.AccountSnapshot{}, loggedIn, err
	}

	snap, err := o.normalize(raw, url)
	if err != nil {
		return models.AccountSnapshot{}, loggedIn, err
	}
	return snap, loggedIn, nil
}

// authenticate prefers the stored session and falls back to interactive login.
func (o *Orchestrator) authenticate(ctx context.Context, page interfaces.Page, url string) (bool, error) {
	if o.sessions != nil {
		if sess, ok := o.sessions.Load(ctx); ok {
			err := page.Restore(ctx, sess)
			if err == nil {
				return false, nil
			}
			o.logger.Debug().
				Str("url", url).
				Str("kind", models.KindOf(err).String()).
				Err(err).
				Msg("Stored session rejected, logging in")
		}
	}

	if err := o.login(ctx, page); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Orchestrator) login(ctx context.Context, page interfaces.Page) error {
	if o.creds.Empty() {
		return models.Errorf(models.KindNotAuthenticated, "login", "", "no credentials configured")
	}
	if o.opts.LoginTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.LoginTimeout)
		defer cancel()
	}
	return page.Login(ctx, o.creds)
}

// saveSession persists the unit's session after a fresh login. Failure is
// logged and never fails the unit.
func (o *Orchestrator) saveSession(ctx context.Context, page interfaces.Page, url string, loggedIn bool) {
	if o.sessions == nil || !loggedIn {
		return
	}

	sess, err := page.Session(ctx)
	if err == nil {
		err = o.sessions.Save(ctx, sess)
	}
	if err != nil {
		o.logger.Warn().
			Str("url", url).
			Str("kind", models.KindIOFailure.String()).
			Err(err).
			Msg("Failed to save session")
	}
}

// captureScreenshot writes a diagnostic screenshot for a dropped portfolio.
func (o *Orchestrator) captureScreenshot(ctx context.Context, page interfaces.Page, url string) {
	if o.opts.ScreenshotDir == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), screenshotTimeout)
	defer cancel()

	buf, err := page.Screenshot(ctx)
	if err != nil {
		o.logger.Debug().Str("url", url).Err(err).Msg("Failed to capture screenshot")
		return
	}

	path, err := writeScreenshot(o.opts.ScreenshotDir, url, time.Now(), buf)
	if err != nil {
		o.logger.Warn().Str("url", url).Err(err).Msg("Failed to write screenshot")
		return
	}
	o.logger.Info().Str("url", url).Str("path", path).Msg("Diagnostic screenshot saved")
}

func writeScreenshot(dir, url string, at time.Time, buf []byte) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s.png", screenshotName(url), at.Format("20060102-150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

// screenshotName turns a portfolio URL into a safe file name stem.
func screenshotName(url string) string {
	name := unsafeFileChars.ReplaceAllString(url, "_")
	if len(name) > 80 {
		name = name[len(name)-80:]
	}
	if name == "" || name == "_" {
		return "portfolio"
	}
	return name
}
