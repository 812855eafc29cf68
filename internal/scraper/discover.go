package scraper

import (
	"context"

	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/vire-leaderboard/internal/models"
	"github.com/bobmcallan/vire-leaderboard/internal/portfolios"
)

// Discover collects portfolio links from a leaderboard page. Links are kept
// when they start with prefix; duplicates are removed in page order. When
// credentials are given the page is loaded after a login.
func (b *Browser) Discover(ctx context.Context, leaderboardURL, prefix string, creds models.Credentials) ([]string, error) {
	page, err := b.open(ctx)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if !creds.Empty() {
		if err := page.Login(ctx, creds); err != nil {
			return nil, err
		}
	}

	if err := page.navigate(ctx, leaderboardURL); err != nil {
		return nil, err
	}

	runCtx, cancel := page.bind(ctx, page.opts.SettleTimeout)
	defer cancel()

	// Leaderboards render rows client side; wait until the matching link count stops changing.
	var links []string
	prevCount := -1
	err = poll(runCtx, page.opts.PollInterval, func() (bool, error) {
		var hrefs []string
		if err := chromedp.Run(runCtx, chromedp.Evaluate(linksScript, &hrefs)); err != nil {
			return false, runCtx.Err()
		}
		links = portfolios.FilterLinks(hrefs, prefix)
		done := len(links) > 0 && len(links) == prevCount
		prevCount = len(links)
		return done, nil
	})
	if err != nil && ctx.Err() != nil {
		return nil, classify("discover", leaderboardURL, ctx.Err())
	}
	if len(links) == 0 {
		return nil, models.Errorf(models.KindElementNotFound, "discover", leaderboardURL, "no links with prefix %q", prefix)
	}

	b.logger.Info().Str("url", leaderboardURL).Int("portfolios", len(links)).Msg("Discovered portfolios")
	return links, nil
}
