package config

import "github.com/bobmcallan/vire-leaderboard/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Portfolios: PortfoliosConfig{
			File:       "data/portfolios/portfolios.txt",
			LinkPrefix: "https://www.investopedia.com/simulator/games/user-portfolio?portfolio=",
		},
		Site: SiteConfig{
			HomeURL:  "https://www.investopedia.com/simulator/home.aspx",
			LoginURL: "https://www.investopedia.com/simulator/home.aspx",
			Selectors: SelectorsConfig{
				AccountValue:  `[data-cy="account-value-text"]`,
				PortfolioName: `[data-cy="user-portfolio-name"]`,
				HoldingsTable: "table",
				Username:      "#username",
				Password:      "#password",
				Submit:        "#login",
				LoginButton:   "LOG IN",
			},
		},
		Browser: BrowserConfig{
			Headless:  true,
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			Width:     1920,
			Height:    1080,
		},
		Acquire: AcquireConfig{
			Concurrency:       5,
			LoginTimeout:      "30s",
			NavigationTimeout: "20s",
			SettleTimeout:     "15s",
			PollInterval:      "250ms",
			AttemptTimeout:    "90s",
		},
		Session: SessionConfig{
			Path:   "data/session/cookies.json",
			MaxAge: "168h",
		},
		Market: MarketConfig{
			Timezone: "America/New_York",
			Open:     "09:30",
			Close:    "17:00",
		},
		Snapshot: SnapshotConfig{
			Dir: "data/leaderboards",
			S3: S3Config{
				Region:         "us-east-1",
				Prefix:         "leaderboards",
				ForcePathStyle: true,
			},
		},
		MCP: MCPConfig{
			Name:     "Leaderboard-MCP",
			Port:     "4251",
			CacheTTL: "30s",
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console", "file"},
			FilePath:   "logs/leaderboard.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}
