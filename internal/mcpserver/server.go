// Package mcpserver exposes read-only match diagnostics as MCP tools over
// streamable HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"

	apppublic "broadside/internal/app/public"
	"broadside/internal/app/status"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const currentStateURI = "match://current/state"

type Server struct {
	statusSvc *status.Service
	publicSvc *apppublic.Service

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(statusSvc *status.Service, publicSvc *apppublic.Service) *Server {
	mcpSrv := server.NewMCPServer(
		"broadside",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		statusSvc:  statusSvc,
		publicSvc:  publicSvc,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerMatchTools()
	s.registerHistoryTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcp.NewResource(
			currentStateURI,
			"current_match_state",
			mcp.WithResourceDescription("Health view of the running match"),
			mcp.WithMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			payload, err := json.Marshal(s.statusSvc.Health())
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      currentStateURI,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}
