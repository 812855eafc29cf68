// Package mcp exposes leaderboard snapshots as MCP tools for chat clients.
package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/config"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
	"github.com/bobmcallan/vire-leaderboard/internal/snapshot"
)

// Source reads snapshots written by the batch run.
type Source interface {
	Latest() (models.SnapshotMap, error)
	Open(name string) (models.SnapshotMap, error)
	History() ([]snapshot.Entry, error)
}

// NewServer creates an MCP server with the leaderboard tools registered.
func NewServer(name string, src Source, logger *common.Logger) *server.MCPServer {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := server.NewMCPServer(name, config.Version, server.WithToolCapabilities(true))
	registerTools(s, &tools{src: src, logger: logger})
	return s
}

// Handler serves the MCP server over streamable HTTP.
type Handler struct {
	streamable *server.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler wraps s in a stateless streamable HTTP transport.
func NewHandler(s *server.MCPServer, logger *common.Logger) *Handler {
	return &Handler{
		streamable: server.NewStreamableHTTPServer(s, server.WithStateLess(true)),
		logger:     logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("mcp request")
	h.streamable.ServeHTTP(w, r)
}

func registerTools(s *server.MCPServer, t *tools) {
	s.AddTool(getVersionTool(), t.handleGetVersion)
	s.AddTool(getLeaderboardTool(), t.handleGetLeaderboard)
	s.AddTool(getTopRankedTool(), t.handleGetTopRanked)
	s.AddTool(getPortfolioTool(), t.handleGetPortfolio)
	s.AddTool(listSnapshotsTool(), t.handleListSnapshots)
	s.AddTool(getHoldingChangesTool(), t.handleGetHoldingChanges)
}
