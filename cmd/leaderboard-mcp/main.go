package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/config"
	"github.com/bobmcallan/vire-leaderboard/internal/market"
	"github.com/bobmcallan/vire-leaderboard/internal/mcp"
	httpserver "github.com/bobmcallan/vire-leaderboard/internal/server"
	"github.com/bobmcallan/vire-leaderboard/internal/snapshot"
)

func main() {
	var configFiles config.Files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	stdio := flag.Bool("stdio", false, "Use stdio transport (for desktop chat clients)")
	port := flag.String("port", "", "HTTP port (overrides config)")
	showVersion := flag.Bool("version", false, "Print version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("leaderboard-mcp version %s\n", config.Info())
		os.Exit(0)
	}

	configFiles = configFiles.OrDiscover("leaderboard.toml")
	cfg, err := config.LoadFromFiles(configFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.MCP.Port = *port
	}

	hours, err := market.NewHours(cfg.Market)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid market configuration: %v\n", err)
		os.Exit(1)
	}

	// Console logs go to stderr, leaving stdout to the stdio transport.
	logger := common.NewLoggerFromConfig(cfg.Logging)

	reader := mcp.NewCachedSource(snapshot.NewReader(cfg.Snapshot.Dir, hours.Location), cfg.MCP.GetCacheTTL())
	mcpServer := mcp.NewServer(cfg.MCP.Name, reader, logger)

	if *stdio {
		if err := server.ServeStdio(mcpServer); err != nil {
			fmt.Fprintf(os.Stderr, "stdio server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	srv := httpserver.New(":"+cfg.MCP.Port, mcp.NewHandler(mcpServer, logger), reader, logger)

	logger.Info().
		Str("port", cfg.MCP.Port).
		Str("snapshot_dir", cfg.Snapshot.Dir).
		Dur("cache_ttl", cfg.MCP.GetCacheTTL()).
		Str("config_files", configFiles.String()).
		Msg("MCP streamable HTTP ready on /mcp")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx, 10*time.Second); err != nil {
		logger.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}
