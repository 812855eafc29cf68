package interfaces

import (
	"context"

	"github.com/bobmcallan/vire-leaderboard/internal/models"
)

// Page is one isolated browser context owned by a single acquisition unit.
// Methods return *models.ScrapeError values classified by kind.
type Page interface {
	// Restore installs a stored session and verifies it is still authenticated.
	Restore(ctx context.Context, session *models.Session) error
	// Login performs an interactive login with the given credentials.
	Login(ctx context.Context, creds models.Credentials) error
	// Clear drops all authentication state from the context.
	Clear(ctx context.Context) error
	// Scrape navigates to url, waits for the page to settle and reads raw fields.
	Scrape(ctx context.Context, url string) (*models.RawPortfolioPage, error)
	// Session exports the current authentication state.
	Session(ctx context.Context) (*models.Session, error)
	// Screenshot captures the page for diagnostics.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Browser opens isolated pages. Implementations must be safe for concurrent use.
type Browser interface {
	Open(ctx context.Context) (Page, error)
}
