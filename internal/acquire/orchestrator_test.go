package acquire

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

func newTestOrchestrator(site *fakeSite, sessions *fakeSessions, opts Options) *Orchestrator {
	if opts.Concurrency == 0 {
		opts.Concurrency = 5
	}
	if sessions == nil {
		return NewOrchestrator(site, nil, testCreds, opts, nil)
	}
	return NewOrchestrator(site, sessions, testCreds, opts, nil)
}

func TestRun_EmptyInput(t *testing.T) {
	site := newFakeSite()
	o := newTestOrchestrator(site, nil, Options{})

	result, summary := o.Run(context.Background(), nil)

	require.NotNil(t, result)
	assert.Empty(t, result)
	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, int32(0), site.opens.Load())
}

func TestRun_AllSucceed(t *testing.T) {
	site := newFakeSite()
	o := newTestOrchestrator(site, nil, Options{})
	urls := portfolioURLs(3)

	result, summary := o.Run(context.Background(), urls)

	require.Len(t, result, 3)
	snap, ok := result["Owner of "+urls[0]]
	require.True(t, ok)
	assert.Equal(t, 100000.0, snap.Value)
	assert.Equal(t, urls[0], snap.URL)
	assert.Equal(t, []models.Holding{{Ticker: "AAPL", LastPrice: "$190.12", PercentChange: "1.23%"}}, snap.Holdings)
	assert.Len(t, summary.Succeeded, 3)
	assert.Empty(t, summary.Failed)
	assert.Equal(t, site.opens.Load(), site.closes.Load(), "every page must be closed")
}

func TestRun_PartialFailure(t *testing.T) {
	site := newFakeSite()
	urls := portfolioURLs(5)
	broken := urls[2]
	site.scrapeFn = func(url string, _ int) (*models.RawPortfolioPage, error) {
		if url == broken {
			return nil, models.Errorf(models.KindElementNotFound, "settle", url, "account value missing")
		}
		return pageFor(url), nil
	}
	o := newTestOrchestrator(site, nil, Options{})

	result, summary := o.Run(context.Background(), urls)

	assert.Len(t, result, 4)
	for name, snap := range result {
		assert.NotEqual(t, broken, snap.URL, "broken portfolio %s must be absent", name)
	}
	assert.Equal(t, []string{broken}, summary.Failed)
	assert.Equal(t, 2, site.callsFor(broken), "exactly one retry for the failing portfolio")
}

func TestRun_ConcurrencyBound(t *testing.T) {
	site := newFakeSite()
	site.delay = 40 * time.Millisecond
	o := newTestOrchestrator(site, nil, Options{Concurrency: 2})

	start := time.Now()
	result, _ := o.Run(context.Background(), portfolioURLs(10))
	elapsed := time.Since(start)

	assert.Len(t, result, 10)
	assert.LessOrEqual(t, site.maxInFlight.Load(), int32(2))
	assert.GreaterOrEqual(t, elapsed, 5*site.delay, "ceil(10/2) x delay is a lower bound")
}

func TestRun_RetryAfterNotAuthenticated(t *testing.T) {
	site := newFakeSite()
	url := portfolioURLs(1)[0]
	site.scrapeFn = func(u string, call int) (*models.RawPortfolioPage, error) {
		if call == 1 {
			return nil, models.Errorf(models.KindNotAuthenticated, "scrape", u, "session expired")
		}
		return pageFor(u), nil
	}
	o := newTestOrchestrator(site, nil, Options{})

	result, summary := o.Run(context.Background(), []string{url})

	require.Len(t, result, 1)
	assert.Equal(t, []string{url}, summary.Succeeded)
	assert.Equal(t, int32(1), site.clears.Load(), "retry clears state")
	assert.Equal(t, int32(2), site.logins.Load(), "initial login plus forced re-login")
}

func TestRun_MalformedValueIsRetriedThenDropped(t *testing.T) {
	site := newFakeSite()
	site.scrapeFn = func(u string, _ int) (*models.RawPortfolioPage, error) {
		p := pageFor(u)
		p.AccountValue = "N/A"
		return p, nil
	}
	o := newTestOrchestrator(site, nil, Options{})
	url := portfolioURLs(1)[0]

	result, summary := o.Run(context.Background(), []string{url})

	assert.Empty(t, result)
	assert.Equal(t, []string{url}, summary.Failed)
	assert.Equal(t, 2, site.callsFor(url))
}

func TestRun_Idempotent(t *testing.T) {
	site := newFakeSite()
	o := newTestOrchestrator(site, nil, Options{Concurrency: 3})
	urls := portfolioURLs(6)

	first, _ := o.Run(context.Background(), urls)
	second, _ := o.Run(context.Background(), urls)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_UnitTimeout(t *testing.T) {
	site := newFakeSite()
	site.delay = time.Minute
	o := newTestOrchestrator(site, nil, Options{AttemptTimeout: 20 * time.Millisecond})

	start := time.Now()
	result, summary := o.Run(context.Background(), portfolioURLs(2))

	assert.Empty(t, result)
	assert.Len(t, summary.Failed, 2)
	assert.Less(t, time.Since(start), 5*time.Second, "a stuck unit must not run unboundedly")
}

func TestRun_UsesStoredSession(t *testing.T) {
	site := newFakeSite()
	sessions := &fakeSessions{session: &models.Session{Cookies: []models.Cookie{{Name: "sid", Value: "stored"}}}}
	o := newTestOrchestrator(site, sessions, Options{})

	result, _ := o.Run(context.Background(), portfolioURLs(3))

	assert.Len(t, result, 3)
	assert.Equal(t, int32(3), site.restores.Load())
	assert.Equal(t, int32(0), site.logins.Load(), "a valid stored session avoids login")
	assert.Equal(t, 0, sessions.saves, "restored sessions are not re-saved")
}

func TestRun_RejectedSessionFallsBackToLogin(t *testing.T) {
	site := newFakeSite()
	site.restoreErr = models.Errorf(models.KindNotAuthenticated, "restore", "", "login form visible")
	sessions := &fakeSessions{session: &models.Session{Cookies: []models.Cookie{{Name: "sid", Value: "expired"}}}}
	o := newTestOrchestrator(site, sessions, Options{})
	url := portfolioURLs(1)[0]

	result, _ := o.Run(context.Background(), []string{url})

	assert.Len(t, result, 1)
	assert.Equal(t, int32(1), site.logins.Load())
	assert.Equal(t, 1, site.callsFor(url), "fallback login is not the retry")
	assert.Equal(t, 1, sessions.saves)
	assert.Equal(t, "fresh", sessions.session.Cookies[0].Value)
}

func TestRun_SessionSaveFailureIsNotFatal(t *testing.T) {
	site := newFakeSite()
	sessions := &fakeSessions{saveErr: models.Errorf(models.KindIOFailure, "session save", "", "disk full")}
	o := newTestOrchestrator(site, sessions, Options{})

	result, summary := o.Run(context.Background(), portfolioURLs(2))

	assert.Len(t, result, 2)
	assert.Empty(t, summary.Failed)
	assert.Equal(t, 2, sessions.saves)
}

func TestRun_NameCollisionLastWriteWins(t *testing.T) {
	site := newFakeSite()
	site.scrapeFn = func(u string, _ int) (*models.RawPortfolioPage, error) {
		p := pageFor(u)
		p.DisplayName = "Same Name Portfolio"
		return p, nil
	}
	o := newTestOrchestrator(site, nil, Options{Concurrency: 1})
	urls := portfolioURLs(2)

	result, summary := o.Run(context.Background(), urls)

	require.Len(t, result, 1)
	assert.Equal(t, urls[1], result["Same Name"].URL, "sequential run keeps the later result")
	assert.Equal(t, []string{"Same Name"}, summary.Collisions)
	assert.Len(t, summary.Succeeded, 2)
}

func TestRun_NoCredentials(t *testing.T) {
	site := newFakeSite()
	o := NewOrchestrator(site, nil, models.Credentials{}, Options{Concurrency: 1}, nil)

	result, summary := o.Run(context.Background(), portfolioURLs(1))

	assert.Empty(t, result)
	assert.Len(t, summary.Failed, 1)
	assert.Equal(t, int32(0), site.logins.Load())
}

func TestRun_OpenRetriedOnce(t *testing.T) {
	site := newFakeSite()
	site.openErrs.Store(1)
	o := newTestOrchestrator(site, nil, Options{Concurrency: 1})

	result, _ := o.Run(context.Background(), portfolioURLs(1))

	assert.Len(t, result, 1)
	assert.Equal(t, int32(2), site.opens.Load())
}

func TestRun_ScreenshotOnDrop(t *testing.T) {
	dir := t.TempDir()
	site := newFakeSite()
	site.scrapeFn = func(u string, _ int) (*models.RawPortfolioPage, error) {
		return nil, models.Errorf(models.KindElementNotFound, "settle", u, "missing")
	}
	o := newTestOrchestrator(site, nil, Options{ScreenshotDir: dir})

	o.Run(context.Background(), portfolioURLs(1))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".png"))
	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data))
}

func TestScreenshotName(t *testing.T) {
	assert.Equal(t, "https_example_com_user-portfolio_portfolio_42", screenshotName("https://example.com/user-portfolio?portfolio=42"))
	assert.Equal(t, "portfolio", screenshotName("://"))
	assert.LessOrEqual(t, len(screenshotName(strings.Repeat("a", 200))), 80)
}
