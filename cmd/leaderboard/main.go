package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobmcallan/vire-leaderboard/internal/app"
	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/config"
	"github.com/bobmcallan/vire-leaderboard/internal/scheduler"
)

var (
	configFiles config.Files
	concurrency = flag.Int("concurrency", 0, "Maximum portfolios scraped at once (overrides config)")
	force       = flag.Bool("force", false, "Scrape even outside trading hours")
	cronSpec    = flag.String("cron", "", "Stay running and scrape on this cron schedule, e.g. \"*/15 9-16 * * MON-FRI\"")
	discoverURL = flag.String("discover", "", "Collect portfolio links from this leaderboard page and write the portfolio list")
	probeURL    = flag.String("probe", "", "Scrape one portfolio page and print what it reads as, without writing a snapshot")
	probeShot   = flag.String("screenshot", "", "With -probe, save a screenshot of the page to this path")
	showVersion = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("leaderboard version %s\n", config.Info())
		os.Exit(0)
	}

	configFiles = configFiles.OrDiscover("leaderboard.toml")
	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// CLI flags take precedence over file and environment.
	config.ApplyFlagOverrides(cfg, *concurrency, *force, *cronSpec)

	issues := cfg.Validate()
	if cfg.Schedule.Cron != "" {
		if err := scheduler.ValidateSpec(cfg.Schedule.Cron); err != nil {
			issues = append(issues, err.Error())
		}
	}
	if len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Configuration error, mandatory fields are missing or invalid:")
		fmt.Fprintln(os.Stderr, "")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Values can be set via TOML file, LEADERBOARD_* environment variables, or CLI flags.")
		fmt.Fprintln(os.Stderr, "")
		os.Exit(1)
	}

	logger := common.NewLoggerFromConfig(cfg.Logging)

	logger.Info().
		Str("version", config.Version).
		Str("environment", cfg.Environment).
		Str("config_files", configFiles.String()).
		Bool("credentials", cfg.HasCredentials()).
		Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize application")
		os.Exit(1)
	}

	switch {
	case *probeURL != "":
		if err := probe(ctx, application, *probeURL, *probeShot); err != nil {
			logger.Error().Err(err).Str("url", *probeURL).Msg("probe failed")
			os.Exit(1)
		}

	case *discoverURL != "":
		if _, err := application.Discover(ctx, *discoverURL); err != nil {
			logger.Error().Err(err).Str("url", *discoverURL).Msg("portfolio discovery failed")
			os.Exit(1)
		}

	case cfg.Schedule.Cron != "":
		if err := application.RunScheduled(ctx); err != nil {
			logger.Error().Err(err).Msg("scheduler failed")
			os.Exit(1)
		}

	default:
		if _, err := application.RunBatch(ctx); err != nil {
			logger.Error().Err(err).Msg("batch failed")
			os.Exit(1)
		}
	}
}

func probe(ctx context.Context, application *app.App, url, screenshotPath string) error {
	res, err := application.Probe(ctx, url, screenshotPath != "")
	if err != nil {
		return err
	}
	if screenshotPath != "" && res.Screenshot != nil {
		if err := os.WriteFile(screenshotPath, res.Screenshot, 0644); err != nil {
			return fmt.Errorf("failed to save screenshot: %w", err)
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
