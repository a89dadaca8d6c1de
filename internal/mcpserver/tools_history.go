package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_matches",
			mcp.WithDescription("Recently started matches, newest first"),
			mcp.WithNumber("limit", mcp.Description("Page size, default 20, max 100")),
		),
		s.handleListMatches,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_match",
			mcp.WithDescription("One recorded match with its turns and connection events"),
			mcp.WithString("match_id", mcp.Required(), mcp.Description("Match id")),
		),
		s.handleGetMatch,
	)
}

func (s *Server) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := s.publicSvc.Matches(ctx, clampLimit(request.GetInt("limit", defaultMatchLimit)))
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(resp), nil
}

func (s *Server) handleGetMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("match_id")
	if err != nil {
		return toolError("invalid_request", err.Error()), nil
	}
	resp, svcErr := s.publicSvc.Match(ctx, id)
	if svcErr != nil {
		return mapDomainError(svcErr), nil
	}
	return toolResult(resp), nil
}
