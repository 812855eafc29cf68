package app

import (
	"context"
	"fmt"

	"github.com/bobmcallan/vire-leaderboard/internal/interfaces"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
	"github.com/bobmcallan/vire-leaderboard/internal/normalize"
)

// ProbeResult is what one portfolio page reads as, before and after
// normalization. NormalizeError is set when the raw text cannot be parsed.
type ProbeResult struct {
	URL            string                   `json:"url"`
	Raw            *models.RawPortfolioPage `json:"raw"`
	Account        *models.AccountSnapshot  `json:"account,omitempty"`
	NormalizeError string                   `json:"normalize_error,omitempty"`
	Screenshot     []byte                   `json:"-"`
}

// Probe scrapes a single portfolio without retries and without writing
// anything. It is used to check selectors against the live site.
func (a *App) Probe(ctx context.Context, url string, screenshot bool) (*ProbeResult, error) {
	browser, err := a.newBrowser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	defer browser.Close()

	ctx, cancel := context.WithTimeout(ctx, a.Config.Acquire.GetLoginTimeout()+a.Config.Acquire.GetAttemptTimeout())
	defer cancel()

	page, err := browser.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := a.probeAuth(ctx, page); err != nil {
		return nil, err
	}

	raw, err := page.Scrape(ctx, url)
	if err != nil {
		return nil, err
	}

	res := &ProbeResult{URL: url, Raw: raw}
	if snap, err := normalize.Account(raw, url); err != nil {
		res.NormalizeError = err.Error()
	} else {
		res.Account = &snap
	}

	if screenshot {
		if buf, err := page.Screenshot(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("probe screenshot failed")
		} else {
			res.Screenshot = buf
		}
	}

	a.Logger.Info().
		Str("url", url).
		Int("rows", len(raw.Rows)).
		Bool("normalized", res.Account != nil).
		Msg("probe complete")
	return res, nil
}

func (a *App) probeAuth(ctx context.Context, page interfaces.Page) error {
	if sess, ok := a.Sessions.Load(ctx); ok {
		if err := page.Restore(ctx, sess); err == nil {
			return nil
		}
	}
	creds := a.credentials()
	if creds.Empty() {
		return models.Errorf(models.KindNotAuthenticated, "login", "", "no credentials configured")
	}
	return page.Login(ctx, creds)
}
