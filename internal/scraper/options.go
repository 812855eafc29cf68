// Package scraper drives headless Chrome to read simulator portfolio pages.
package scraper

import (
	"time"

	"github.com/bobmcallan/vire-leaderboard/internal/config"
)

// Selectors locate the elements read from the site.
type Selectors struct {
	AccountValue  string
	PortfolioName string
	HoldingsTable string
	Username      string
	Password      string
	Submit        string
	LoginButton   string // visible text of the control that reveals the login form
}

// Options configures the browser and the page operations.
type Options struct {
	HomeURL   string
	LoginURL  string
	Selectors Selectors

	Headless  bool
	RemoteURL string
	UserAgent string
	Width     int
	Height    int

	NavigationTimeout time.Duration
	SettleTimeout     time.Duration
	PollInterval      time.Duration
}

// OptionsFromConfig maps application config onto scraper options.
func OptionsFromConfig(cfg *config.Config) Options {
	s := cfg.Site.Selectors
	return Options{
		HomeURL:  cfg.Site.HomeURL,
		LoginURL: cfg.Site.LoginURL,
		Selectors: Selectors{
			AccountValue:  s.AccountValue,
			PortfolioName: s.PortfolioName,
			HoldingsTable: s.HoldingsTable,
			Username:      s.Username,
			Password:      s.Password,
			Submit:        s.Submit,
			LoginButton:   s.LoginButton,
		},
		Headless:          cfg.Browser.Headless,
		RemoteURL:         cfg.Browser.RemoteURL,
		UserAgent:         cfg.Browser.UserAgent,
		Width:             cfg.Browser.Width,
		Height:            cfg.Browser.Height,
		NavigationTimeout: cfg.Acquire.GetNavigationTimeout(),
		SettleTimeout:     cfg.Acquire.GetSettleTimeout(),
		PollInterval:      cfg.Acquire.GetPollInterval(),
	}
}
