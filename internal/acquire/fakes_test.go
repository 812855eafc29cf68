package acquire

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/interfaces"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// fakeSite simulates the simulator site shared by all fake pages.
type fakeSite struct {
	mu       sync.Mutex
	calls    map[string]int
	delay    time.Duration
	scrapeFn func(url string, call int) (*models.RawPortfolioPage, error)

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	logins      atomic.Int32
	restores    atomic.Int32
	clears      atomic.Int32
	opens       atomic.Int32
	closes      atomic.Int32
	openErrs    atomic.Int32 // number of Open calls that fail before succeeding
	restoreErr  error
}

func newFakeSite() *fakeSite {
	return &fakeSite{calls: make(map[string]int)}
}

func pageFor(url string) *models.RawPortfolioPage {
	return &models.RawPortfolioPage{
		AccountValue: "$100,000.00",
		DisplayName:  "Owner of " + url + " Portfolio",
		Rows: []models.RawRow{
			{Cells: []string{"Symbol", "Price", "Change"}, Header: true},
			{Cells: []string{"AAPL", "$190.12", "+2.31(1.23%)"}},
		},
	}
}

func (s *fakeSite) Open(_ context.Context) (interfaces.Page, error) {
	s.opens.Add(1)
	if s.openErrs.Load() > 0 {
		s.openErrs.Add(-1)
		return nil, errors.New("browser unavailable")
	}
	return &fakePage{site: s}, nil
}

func (s *fakeSite) scrape(ctx context.Context, url string) (*models.RawPortfolioPage, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		cur := s.maxInFlight.Load()
		if n <= cur || s.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	s.mu.Lock()
	s.calls[url]++
	call := s.calls[url]
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, models.NewError(models.KindTimeout, "settle", url, ctx.Err())
		}
	}

	if s.scrapeFn != nil {
		return s.scrapeFn(url, call)
	}
	return pageFor(url), nil
}

func (s *fakeSite) callsFor(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

type fakePage struct {
	site     *fakeSite
	loggedIn bool
}

func (p *fakePage) Restore(_ context.Context, _ *models.Session) error {
	p.site.restores.Add(1)
	if p.site.restoreErr != nil {
		return p.site.restoreErr
	}
	p.loggedIn = true
	return nil
}

func (p *fakePage) Login(_ context.Context, _ models.Credentials) error {
	p.site.logins.Add(1)
	p.loggedIn = true
	return nil
}

func (p *fakePage) Clear(_ context.Context) error {
	p.site.clears.Add(1)
	p.loggedIn = false
	return nil
}

func (p *fakePage) Scrape(ctx context.Context, url string) (*models.RawPortfolioPage, error) {
	if !p.loggedIn {
		return nil, models.Errorf(models.KindNotAuthenticated, "scrape", url, "login form visible")
	}
	return p.site.scrape(ctx, url)
}

func (p *fakePage) Session(_ context.Context) (*models.Session, error) {
	return &models.Session{Cookies: []models.Cookie{{Name: "sid", Value: "fresh"}}}, nil
}

func (p *fakePage) Screenshot(_ context.Context) ([]byte, error) {
	return []byte("\x89PNG"), nil
}

func (p *fakePage) Close() error {
	p.site.closes.Add(1)
	return nil
}

// fakeSessions is an in-memory SessionStore.
type fakeSessions struct {
	mu      sync.Mutex
	session *models.Session
	saves   int
	saveErr error
}

func (f *fakeSessions) Load(_ context.Context) (*models.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil, false
	}
	return f.session.Clone(), true
}

func (f *fakeSessions) Save(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.session = s.Clone()
	return nil
}

var testCreds = models.Credentials{Email: "bot@example.com", Password: "secret"}

func portfolioURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/user-portfolio?portfolio=%d", i+1)
	}
	return urls
}
