package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerMatchTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_match_state",
			mcp.WithDescription("Health view of the running match: players, phase, whose turn"),
		),
		s.handleGetMatchState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_roster",
			mcp.WithDescription("Seat occupancy, readiness and grace windows"),
			mcp.WithNumber("slot", mcp.Description("Optional seat, 0 or 1")),
		),
		s.handleGetRoster,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_turn_history",
			mcp.WithDescription("Turn history of the running match"),
			mcp.WithBoolean("full", mcp.Description("Return every entry instead of the recent window")),
		),
		s.handleGetTurnHistory,
	)
}

func (s *Server) handleGetMatchState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	health := s.statusSvc.Health()
	roster := s.statusSvc.Roster()
	return toolResult(map[string]any{
		"phase":  roster.Phase,
		"health": health,
	}), nil
}

func (s *Server) handleGetRoster(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slot := request.GetInt("slot", -1)
	if slot == -1 {
		return toolResult(s.statusSvc.Roster()), nil
	}
	seat, err := s.statusSvc.Seat(slot)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(seat), nil
}

func (s *Server) handleGetTurnHistory(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.statusSvc.TurnHistory(request.GetBool("full", false))), nil
}
