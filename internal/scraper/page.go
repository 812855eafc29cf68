package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// Page is one isolated browser context. It is owned by a single unit and is
// not safe for concurrent use.
type Page struct {
	ctx      context.Context
	cancel   context.CancelFunc
	opts     Options
	logger   *common.Logger
	jsErrors *scriptErrors
}

// bind derives a chromedp context from the page that also ends when ctx ends,
// optionally bounded by timeout.
func (p *Page) bind(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancelRun := context.WithCancel(p.ctx)
	cancels := []context.CancelFunc{cancelRun}

	if dl, ok := ctx.Deadline(); ok {
		var c context.CancelFunc
		runCtx, c = context.WithDeadline(runCtx, dl)
		cancels = append(cancels, c)
	}
	if timeout > 0 {
		var c context.CancelFunc
		runCtx, c = context.WithTimeout(runCtx, timeout)
		cancels = append(cancels, c)
	}

	stop := context.AfterFunc(ctx, cancelRun)
	return runCtx, func() {
		stop()
		for i := len(cancels) - 1; i >= 0; i-- {
			cancels[i]()
		}
	}
}

// classify wraps a chromedp error; deadlines become Timeout.
func classify(op, url string, err error) error {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewError(models.KindTimeout, op, url, err)
	}
	return models.NewError(models.KindOther, op, url, err)
}

func (p *Page) navigate(ctx context.Context, url string) error {
	navCtx, cancel := p.bind(ctx, p.opts.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return classify("navigate", url, err)
	}
	return nil
}

// Restore installs the session's cookies, loads the home page and verifies
// that the site no longer offers a login.
func (p *Page) Restore(ctx context.Context, session *models.Session) error {
	if session == nil || len(session.Cookies) == 0 {
		return models.Errorf(models.KindNotAuthenticated, "restore", "", "empty session")
	}

	runCtx, cancel := p.bind(ctx, 0)
	err := chromedp.Run(runCtx, network.SetCookies(toCookieParams(session.Cookies)))
	cancel()
	if err != nil {
		return classify("restore", "", err)
	}

	if err := p.navigate(ctx, p.opts.HomeURL); err != nil {
		return err
	}

	state, err := p.settledAuthState(ctx)
	if err != nil {
		return classify("restore", p.opts.HomeURL, err)
	}
	if state.loggedOut() {
		return models.Errorf(models.KindNotAuthenticated, "restore", p.opts.HomeURL, "stored session rejected, login offered")
	}
	return nil
}

// Login signs in through the site's login form. The flow after navigation is
// bounded by the caller's context and by navigation plus settle timeouts.
func (p *Page) Login(ctx context.Context, creds models.Credentials) error {
	if creds.Empty() {
		return models.Errorf(models.KindNotAuthenticated, "login", "", "no credentials")
	}

	loginURL := p.opts.LoginURL
	if err := p.navigate(ctx, loginURL); err != nil {
		return err
	}

	runCtx, cancel := p.bind(ctx, p.opts.NavigationTimeout+p.opts.SettleTimeout)
	defer cancel()

	sel := p.opts.Selectors

	var state authState
	if err := chromedp.Run(runCtx, chromedp.Evaluate(authStateScript(sel), &state)); err != nil {
		return classify("login", loginURL, err)
	}
	if !state.Form {
		var clicked bool
		if err := chromedp.Run(runCtx, chromedp.Evaluate(revealLoginScript(sel), &clicked)); err != nil {
			return classify("login", loginURL, err)
		}
		p.logger.Debug().Bool("clicked", clicked).Msg("Revealing login form")
	}

	err := chromedp.Run(runCtx,
		chromedp.WaitVisible(sel.Username, chromedp.ByQuery),
		chromedp.SendKeys(sel.Username, creds.Email, chromedp.ByQuery),
		chromedp.SendKeys(sel.Password, creds.Password, chromedp.ByQuery),
		chromedp.Click(sel.Submit, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return models.NewError(models.KindTimeout, "login", loginURL, err)
		}
		return models.NewError(models.KindNotAuthenticated, "login", loginURL, err)
	}

	var last authState
	err = poll(runCtx, p.opts.PollInterval, func() (bool, error) {
		var cur authState
		if err := chromedp.Run(runCtx, chromedp.Evaluate(authStateScript(sel), &cur)); err != nil {
			// The submit usually navigates; evaluation fails while the document is replaced.
			return false, runCtx.Err()
		}
		last = cur
		return !cur.loggedOut(), nil
	})
	if err != nil {
		if last.loggedOut() {
			return models.NewError(models.KindNotAuthenticated, "login", loginURL, fmt.Errorf("login form still visible: %w", err))
		}
		return classify("login", loginURL, err)
	}

	p.logger.Debug().Msg("Login succeeded")
	return nil
}

// settledAuthState waits until two consecutive auth checks of a loaded
// document agree.
func (p *Page) settledAuthState(ctx context.Context) (*authState, error) {
	runCtx, cancel := p.bind(ctx, p.opts.SettleTimeout)
	defer cancel()

	script := authStateScript(p.opts.Selectors)
	var prev, last *authState
	err := poll(runCtx, p.opts.PollInterval, func() (bool, error) {
		var cur authState
		if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &cur)); err != nil {
			return false, runCtx.Err()
		}
		prev, last = last, &cur
		return cur.ReadyState == "complete" && prev != nil && *prev == cur, nil
	})
	if err != nil {
		if last != nil && ctx.Err() == nil {
			return last, nil
		}
		return nil, err
	}
	return last, nil
}

// Clear drops all cookies in this page's browser context.
func (p *Page) Clear(ctx context.Context) error {
	runCtx, cancel := p.bind(ctx, 0)
	defer cancel()

	if err := chromedp.Run(runCtx, network.ClearBrowserCookies()); err != nil {
		return classify("clear", "", err)
	}
	return nil
}

// Scrape loads url and reads the raw portfolio fields once the page has
// settled: both required fields present and two consecutive reads identical.
// If content keeps changing until the settle timeout, the last complete read
// is returned.
func (p *Page) Scrape(ctx context.Context, url string) (*models.RawPortfolioPage, error) {
	p.jsErrors.reset()

	if err := p.navigate(ctx, url); err != nil {
		return nil, err
	}

	runCtx, cancel := p.bind(ctx, p.opts.SettleTimeout)
	defer cancel()

	script := extractScript(p.opts.Selectors)
	var prev, last *extraction
	var evalErr error

	err := poll(runCtx, p.opts.PollInterval, func() (bool, error) {
		var cur extraction
		if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &cur)); err != nil {
			if runCtx.Err() != nil {
				return false, runCtx.Err()
			}
			evalErr = err
			return false, nil
		}
		if cur.LoginForm {
			return false, models.Errorf(models.KindNotAuthenticated, "scrape", url, "login form visible")
		}
		prev, last = last, &cur
		return cur.ready() && cur.sameAs(prev), nil
	})

	switch {
	case err == nil:
		return last.raw(), nil
	case models.IsKind(err, models.KindNotAuthenticated):
		return nil, err
	case ctx.Err() != nil:
		return nil, classify("scrape", url, ctx.Err())
	case last != nil && last.ready():
		p.logger.Debug().Str("url", url).Msg("Page content still changing at settle timeout, using last read")
		return last.raw(), nil
	}

	if errs := p.jsErrors.snapshot(); len(errs) > 0 {
		p.logger.Debug().Str("url", url).Strs("js_errors", errs).Msg("Page raised script errors")
	}
	if evalErr != nil {
		return nil, models.NewError(models.KindElementNotFound, "settle", url, evalErr)
	}
	return nil, models.Errorf(models.KindElementNotFound, "settle", url, "account value or portfolio name not rendered")
}

func (e *extraction) raw() *models.RawPortfolioPage {
	rows := make([]models.RawRow, 0, len(e.Rows))
	for _, r := range e.Rows {
		rows = append(rows, models.RawRow{Cells: r.Cells, Header: r.Header})
	}
	return &models.RawPortfolioPage{
		AccountValue: e.AccountValue,
		DisplayName:  e.DisplayName,
		Rows:         rows,
	}
}

// Session exports the cookies visible to the current document.
func (p *Page) Session(ctx context.Context) (*models.Session, error) {
	runCtx, cancel := p.bind(ctx, 0)
	defer cancel()

	var cookies []*network.Cookie
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, classify("session", "", err)
	}

	return &models.Session{
		Cookies: fromNetworkCookies(cookies),
		SavedAt: time.Now().UTC(),
	}, nil
}

// Screenshot captures the full page as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	runCtx, cancel := p.bind(ctx, 0)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(runCtx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, classify("screenshot", "", err)
	}
	return buf, nil
}

// Close disposes the browser context.
func (p *Page) Close() error {
	p.cancel()
	return nil
}
