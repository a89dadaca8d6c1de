package mcpserver

import (
	"errors"
	"fmt"

	apppublic "broadside/internal/app/public"
	"broadside/internal/app/status"

	"github.com/mark3labs/mcp-go/mcp"
)

func toolResult(data any) *mcp.CallToolResult {
	return mcp.NewToolResultStructuredOnly(data)
}

func toolError(code, message string) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(
		map[string]any{
			"error": map[string]any{
				"code":    code,
				"message": message,
			},
		},
		fmt.Sprintf("%s: %s", code, message),
	)
	result.IsError = true
	return result
}

func mapDomainError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return toolError("internal_error", "unknown error")
	case errors.Is(err, apppublic.ErrInvalidRequest), errors.Is(err, status.ErrInvalidSlot):
		return toolError("invalid_request", err.Error())
	case errors.Is(err, apppublic.ErrMatchNotFound), errors.Is(err, status.ErrDebugDisabled):
		return toolError("not_found", err.Error())
	case errors.Is(err, apppublic.ErrHistoryUnavailable):
		return toolError("history_unavailable", "match history is not configured")
	default:
		return toolError("internal_error", err.Error())
	}
}
