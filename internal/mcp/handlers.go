package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/vire-leaderboard/internal/common"
	"github.com/bobmcallan/vire-leaderboard/internal/config"
	"github.com/bobmcallan/vire-leaderboard/internal/leaderboard"
	"github.com/bobmcallan/vire-leaderboard/internal/models"
	"github.com/bobmcallan/vire-leaderboard/internal/snapshot"
)

const (
	defaultBoardLimit   = 10
	maxBoardLimit       = 100
	defaultHistoryLimit = 20
)

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

func clampLimit(v, def, upper int) int {
	if v <= 0 {
		return def
	}
	if v > upper {
		return upper
	}
	return v
}

type tools struct {
	src    Source
	logger *common.Logger
}

// board loads the named snapshot, or the latest when name is empty.
func (t *tools) board(name string) (*leaderboard.Board, *mcp.CallToolResult) {
	var (
		m   models.SnapshotMap
		err error
	)
	if name == "" {
		m, err = t.src.Latest()
	} else {
		m, err = t.src.Open(name)
	}
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		if name == "" {
			return nil, errorResult("No leaderboard snapshot has been written yet.")
		}
		return nil, errorResult(fmt.Sprintf("Snapshot %s not found.", name))
	}
	if err != nil {
		t.logger.Warn().Err(err).Str("snapshot", name).Msg("failed to load snapshot")
		return nil, errorResult(fmt.Sprintf("Error loading snapshot: %v", err))
	}
	return leaderboard.Build(m), nil
}

// --- Handlers ---

func (t *tools) handleGetVersion(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, err := json.Marshal(config.Info())
	if err != nil {
		return errorResult("failed to marshal version info"), nil
	}
	return textResult(string(out)), nil
}

func (t *tools) handleGetLeaderboard(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("snapshot", "")
	limit := clampLimit(request.GetInt("limit", defaultBoardLimit), defaultBoardLimit, maxBoardLimit)

	board, errRes := t.board(name)
	if errRes != nil {
		return errRes, nil
	}
	return textResult(formatBoard(board, limit)), nil
}

func (t *tools) handleGetTopRanked(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	board, errRes := t.board("")
	if errRes != nil {
		return errRes, nil
	}
	top, ok := board.Top()
	if !ok {
		return textResult("The latest snapshot has no accounts."), nil
	}
	return textResult(formatEntry(top, board.Stats.Count)), nil
}

func (t *tools) handleGetPortfolio(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil || name == "" {
		return errorResult("Error: name parameter is required"), nil
	}

	board, errRes := t.board("")
	if errRes != nil {
		return errRes, nil
	}
	entry, ok := board.Find(name)
	if !ok {
		return errorResult(fmt.Sprintf("No portfolio named %q in the latest snapshot.", name)), nil
	}
	return textResult(formatEntry(entry, board.Stats.Count)), nil
}

func (t *tools) handleListSnapshots(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	entries, err := t.src.History()
	if err != nil {
		t.logger.Warn().Err(err).Msg("failed to list snapshots")
		return errorResult(fmt.Sprintf("Error listing snapshots: %v", err)), nil
	}
	return textResult(formatHistory(entries, limit)), nil
}

func (t *tools) handleGetHoldingChanges(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := request.GetString("name", "")

	entries, err := t.src.History()
	if err != nil {
		t.logger.Warn().Err(err).Msg("failed to list snapshots")
		return errorResult(fmt.Sprintf("Error listing snapshots: %v", err)), nil
	}
	inTime := snapshot.InTime(entries)
	if len(inTime) < 2 {
		return textResult("Not enough in-time snapshots to compare yet."), nil
	}
	older, newer := inTime[len(inTime)-2], inTime[len(inTime)-1]

	prev, err := t.src.Open(filepath.Base(older.Path))
	if err != nil {
		return errorResult(fmt.Sprintf("Error loading snapshot: %v", err)), nil
	}
	cur, err := t.src.Open(filepath.Base(newer.Path))
	if err != nil {
		return errorResult(fmt.Sprintf("Error loading snapshot: %v", err)), nil
	}

	changes := leaderboard.HoldingChanges(prev, cur)
	if name != "" {
		var matched []leaderboard.HoldingChange
		for _, c := range changes {
			if strings.EqualFold(c.Name, name) {
				matched = append(matched, c)
			}
		}
		changes = matched
	}
	return textResult(formatHoldingChanges(changes, older, newer)), nil
}
