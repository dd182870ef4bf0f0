// Package mcp provides an MCP (Model Context Protocol) server that lets
// agents ask the factory assistant and browse chat rooms.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/papercomputeco/factorychat/pkg/chatstream"
	"github.com/papercomputeco/factorychat/pkg/rooms"
	"github.com/papercomputeco/factorychat/pkg/session"
	"github.com/papercomputeco/factorychat/pkg/utils"
)

// Chatter runs chat turns.
type Chatter interface {
	CreateNewChat(ctx context.Context, content string, onChunk chatstream.ChunkHandler) session.CreateResult
	SendToExistingChat(ctx context.Context, roomID, content, tempID string, onChunk chatstream.ChunkHandler) session.SendResult
	LoadHistory(ctx context.Context, roomID string) ([]session.Message, error)
}

// RoomLister reads the cached room list.
type RoomLister interface {
	Init(ctx context.Context) ([]rooms.Room, error)
	Refresh(ctx context.Context) ([]rooms.Room, error)
	LoadMore(ctx context.Context) ([]rooms.Room, error)
	HasMore() bool
}

type Config struct {
	// Chat runs questions against the chat backend
	Chat Chatter

	// Rooms serves the list_rooms tool
	Rooms RoomLister

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured zap logger
	Logger *zap.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the chat tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "factorychat",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Chat == nil {
			return nil, errors.New("chat orchestrator is required")
		}
		if c.Rooms == nil {
			return nil, errors.New("room list is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        askToolName,
			Description: askDescription,
		}, s.handleAsk)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        listRoomsToolName,
			Description: listRoomsDescription,
		}, s.handleListRooms)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        historyToolName,
			Description: historyDescription,
		}, s.handleHistory)
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// jsonResult serializes the structured output into a text block as well, for
// clients that ignore structured content.
func jsonResult(output any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("serializing tool output: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil
}
