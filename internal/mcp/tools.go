package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func getVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the leaderboard MCP server version. Use this to verify connectivity."),
	)
}

func getLeaderboardTool() mcp.Tool {
	return mcp.NewTool("get_leaderboard",
		mcp.WithDescription("Rank tracked portfolios by account value with summary statistics (mean, quartiles, standard deviation, z-scores)."),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default: 10, max: 100)")),
		mcp.WithString("snapshot", mcp.Description("Snapshot file name from list_snapshots. Uses the latest snapshot if not specified.")),
	)
}

func getTopRankedTool() mcp.Tool {
	return mcp.NewTool("get_top_ranked",
		mcp.WithDescription("Get the highest valued portfolio in the latest snapshot with its holdings."),
	)
}

func getPortfolioTool() mcp.Tool {
	return mcp.NewTool("get_portfolio",
		mcp.WithDescription("Get one portfolio from the latest snapshot: rank, account value, source URL and holdings."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Account name as shown on the leaderboard (case-insensitive)")),
	)
}

func listSnapshotsTool() mcp.Tool {
	return mcp.NewTool("list_snapshots",
		mcp.WithDescription("List stored snapshot files, newest first, with their trading-hours bucket."),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return (default: 20)")),
	)
}

func getHoldingChangesTool() mcp.Tool {
	return mcp.NewTool("get_holding_changes",
		mcp.WithDescription("List tickers each account bought or sold between the two most recent snapshots taken during trading hours."),
		mcp.WithString("name", mcp.Description("Only report this account (case-insensitive). Reports every account if not specified.")),
	)
}
