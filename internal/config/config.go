package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Environment string               `toml:"environment"`
	Portfolios  PortfoliosConfig     `toml:"portfolios"`
	Site        SiteConfig           `toml:"site"`
	Credentials CredentialsConfig    `toml:"credentials"`
	Browser     BrowserConfig        `toml:"browser"`
	Acquire     AcquireConfig        `toml:"acquire"`
	Session     SessionConfig        `toml:"session"`
	Market      MarketConfig         `toml:"market"`
	Snapshot    SnapshotConfig       `toml:"snapshot"`
	Notify      NotifyConfig         `toml:"notify"`
	Schedule    ScheduleConfig       `toml:"schedule"`
	MCP         MCPConfig            `toml:"mcp"`
	Logging     common.LoggingConfig `toml:"logging"`
}

// PortfoliosConfig locates the tracked portfolio list.
type PortfoliosConfig struct {
	File string `toml:"file"`
	// LinkPrefix filters anchors when discovering portfolios from a leaderboard page.
	LinkPrefix string `toml:"link_prefix"`
}

// SiteConfig describes the simulator site and the selectors read from it.
type SiteConfig struct {
	HomeURL   string          `toml:"home_url"`
	LoginURL  string          `toml:"login_url"`
	Selectors SelectorsConfig `toml:"selectors"`
}

// SelectorsConfig holds CSS selectors for the portfolio and login pages.
type SelectorsConfig struct {
	AccountValue  string `toml:"account_value"`
	PortfolioName string `toml:"portfolio_name"`
	HoldingsTable string `toml:"holdings_table"`
	Username      string `toml:"username"`
	Password      string `toml:"password"`
	Submit        string `toml:"submit"`
	LoginButton   string `toml:"login_button"`
}

// CredentialsConfig holds the simulator login. Normally supplied via environment.
type CredentialsConfig struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// BrowserConfig controls how browser contexts are allocated.
type BrowserConfig struct {
	Headless  bool   `toml:"headless"`
	RemoteURL string `toml:"remote_url"` // DevTools endpoint, e.g. a headless-shell container
	UserAgent string `toml:"user_agent"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
}

// AcquireConfig controls the acquisition pool and per-operation timeouts.
type AcquireConfig struct {
	Concurrency       int    `toml:"concurrency"`
	LoginTimeout      string `toml:"login_timeout"`
	NavigationTimeout string `toml:"navigation_timeout"`
	SettleTimeout     string `toml:"settle_timeout"`
	PollInterval      string `toml:"poll_interval"`
	AttemptTimeout    string `toml:"attempt_timeout"`
	ScreenshotDir     string `toml:"screenshot_dir"`
}

// GetLoginTimeout parses and returns the login timeout.
func (c *AcquireConfig) GetLoginTimeout() time.Duration {
	return parseDuration(c.LoginTimeout, 30*time.Second)
}

// GetNavigationTimeout parses and returns the navigation timeout.
func (c *AcquireConfig) GetNavigationTimeout() time.Duration {
	return parseDuration(c.NavigationTimeout, 20*time.Second)
}

// GetSettleTimeout parses and returns how long to wait for dynamic content.
func (c *AcquireConfig) GetSettleTimeout() time.Duration {
	return parseDuration(c.SettleTimeout, 15*time.Second)
}

// GetPollInterval parses and returns the initial settle poll interval.
func (c *AcquireConfig) GetPollInterval() time.Duration {
	return parseDuration(c.PollInterval, 250*time.Millisecond)
}

// GetAttemptTimeout parses and returns the bound on one navigate+scrape attempt.
func (c *AcquireConfig) GetAttemptTimeout() time.Duration {
	return parseDuration(c.AttemptTimeout, 90*time.Second)
}

// SessionConfig controls cookie persistence between runs.
type SessionConfig struct {
	Path   string `toml:"path"`
	MaxAge string `toml:"max_age"`
}

// GetMaxAge parses and returns the age after which a stored session is ignored.
func (c *SessionConfig) GetMaxAge() time.Duration {
	return parseDuration(c.MaxAge, 7*24*time.Hour)
}

// MarketConfig defines the exchange trading window.
type MarketConfig struct {
	Timezone string `toml:"timezone"`
	Open     string `toml:"open"`  // HH:MM, exchange local
	Close    string `toml:"close"` // HH:MM, exchange local
}

// SnapshotConfig controls where snapshots are written.
type SnapshotConfig struct {
	Dir string   `toml:"dir"`
	S3  S3Config `toml:"s3"`
}

// S3Config holds an optional S3-compatible mirror for snapshot files.
type S3Config struct {
	Bucket         string `toml:"bucket"`
	Prefix         string `toml:"prefix"`
	Region         string `toml:"region"`
	Endpoint       string `toml:"endpoint"` // custom endpoint for MinIO, R2 and friends
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Enabled reports whether the S3 mirror is configured.
func (c *S3Config) Enabled() bool {
	return c.Bucket != ""
}

// NotifyConfig holds outbound notification settings.
type NotifyConfig struct {
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// ScheduleConfig holds the optional in-process schedule.
type ScheduleConfig struct {
	Cron  string `toml:"cron"`
	Force bool   `toml:"force"` // scrape even outside trading hours
}

// MCPConfig holds settings for the chat-bot query server.
type MCPConfig struct {
	Name     string `toml:"name"`
	Port     string `toml:"port"`
	CacheTTL string `toml:"cache_ttl"` // how long the latest snapshot is served from memory
}

// GetCacheTTL parses and returns the latest-snapshot cache lifetime.
func (c *MCPConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 30*time.Second)
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// .env is optional; existing environment variables win over it.
	_ = godotenv.Load()

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies LEADERBOARD_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	setStr(&config.Environment, "LEADERBOARD_ENV")
	setStr(&config.Portfolios.File, "LEADERBOARD_PORTFOLIOS_FILE")

	// Legacy credential names are read first so LEADERBOARD_* wins.
	setStr(&config.Credentials.Email, "INVESTOPEDIA_EMAIL")
	setStr(&config.Credentials.Password, "INVESTOPEDIA_PASSWORD")
	setStr(&config.Credentials.Email, "LEADERBOARD_EMAIL")
	setStr(&config.Credentials.Password, "LEADERBOARD_PASSWORD")

	setStr(&config.Browser.RemoteURL, "LEADERBOARD_BROWSER_REMOTE_URL")
	setBool(&config.Browser.Headless, "LEADERBOARD_BROWSER_HEADLESS")

	setInt(&config.Acquire.Concurrency, "LEADERBOARD_CONCURRENCY")
	setStr(&config.Acquire.ScreenshotDir, "LEADERBOARD_SCREENSHOT_DIR")

	setStr(&config.Session.Path, "LEADERBOARD_SESSION_PATH")
	setStr(&config.Snapshot.Dir, "LEADERBOARD_SNAPSHOT_DIR")

	setStr(&config.Snapshot.S3.Bucket, "LEADERBOARD_S3_BUCKET")
	setStr(&config.Snapshot.S3.Region, "LEADERBOARD_S3_REGION")
	setStr(&config.Snapshot.S3.Endpoint, "LEADERBOARD_S3_ENDPOINT")
	setStr(&config.Snapshot.S3.AccessKey, "LEADERBOARD_S3_ACCESS_KEY")
	setStr(&config.Snapshot.S3.SecretKey, "LEADERBOARD_S3_SECRET_KEY")

	setStr(&config.Notify.DiscordWebhookURL, "LEADERBOARD_DISCORD_WEBHOOK_URL")

	setStr(&config.Schedule.Cron, "LEADERBOARD_CRON")
	setBool(&config.Schedule.Force, "FORCE_UPDATE")
	setBool(&config.Schedule.Force, "LEADERBOARD_FORCE_UPDATE")

	setStr(&config.MCP.Port, "LEADERBOARD_MCP_PORT")
	setStr(&config.MCP.CacheTTL, "LEADERBOARD_MCP_CACHE_TTL")
	setStr(&config.Logging.Level, "LEADERBOARD_LOG_LEVEL")
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, concurrency int, force bool, cron string) {
	if concurrency > 0 {
		config.Acquire.Concurrency = concurrency
	}
	if force {
		config.Schedule.Force = true
	}
	if cron != "" {
		config.Schedule.Cron = cron
	}
}

// Validate returns a list of configuration problems. An empty list means the
// config is usable for a batch run.
func (c *Config) Validate() []string {
	var issues []string

	if c.Acquire.Concurrency < 1 {
		issues = append(issues, fmt.Sprintf("acquire.concurrency must be at least 1 (got %d)", c.Acquire.Concurrency))
	}
	if strings.TrimSpace(c.Portfolios.File) == "" {
		issues = append(issues, "portfolios.file is required")
	}
	if strings.TrimSpace(c.Snapshot.Dir) == "" {
		issues = append(issues, "snapshot.dir is required")
	}
	if strings.TrimSpace(c.Site.HomeURL) == "" || strings.TrimSpace(c.Site.LoginURL) == "" {
		issues = append(issues, "site.home_url and site.login_url are required")
	}
	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		issues = append(issues, fmt.Sprintf("market.timezone %q is not a valid location", c.Market.Timezone))
	}
	open, errOpen := ParseClock(c.Market.Open)
	closing, errClose := ParseClock(c.Market.Close)
	switch {
	case errOpen != nil:
		issues = append(issues, fmt.Sprintf("market.open: %v", errOpen))
	case errClose != nil:
		issues = append(issues, fmt.Sprintf("market.close: %v", errClose))
	case closing <= open:
		issues = append(issues, "market.close must be after market.open")
	}

	return issues
}

// HasCredentials reports whether interactive login is possible.
func (c *Config) HasCredentials() bool {
	return c.Credentials.Email != "" && c.Credentials.Password != ""
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q, expected HH:MM", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
