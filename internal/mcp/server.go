// ABOUTME: MCP server setup for the liftlog soreness tracker.
// ABOUTME: Wraps the MCP server with the soreness service and its store.
package mcp

import (
	"context"
	"errors"

	"github.com/harperreed/liftlog/internal/soreness"
	"github.com/harperreed/liftlog/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with soreness access for one default user.
type Server struct {
	mcpServer *mcp.Server
	svc       *soreness.Service
	store     storage.Store
	userID    string
}

// NewServer creates a new MCP server. userID is used when a tool call does not name a user.
func NewServer(svc *soreness.Service, store storage.Store, userID string) (*Server, error) {
	if svc == nil || store == nil {
		return nil, errors.New("mcp: service and store are required")
	}
	if userID == "" {
		return nil, soreness.ErrNoUser
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "liftlog",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		svc:       svc,
		store:     store,
		userID:    userID,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) user(id string) string {
	if id == "" {
		return s.userID
	}
	return id
}
