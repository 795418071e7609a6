// Package mcpserver exposes the command dispatcher as MCP tools so an
// assistant can drive the same search/select/compile/save flow the
// interactive transports use. The serving identity is fixed at startup;
// rendered video is summarized, not streamed, over this surface.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dam2452/ranchbot/internal/bot"
	"github.com/dam2452/ranchbot/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "ranchbot"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server around the dispatcher.
type Server struct {
	mcp        *server.MCPServer
	dispatcher *bot.Dispatcher
	identity   types.UserIdentity
}

// NewServer creates the MCP surface acting as the given identity.
func NewServer(dispatcher *bot.Dispatcher, identity types.UserIdentity) *Server {
	s := &Server{
		mcp:        server.NewMCPServer(ServerName, ServerVersion),
		dispatcher: dispatcher,
		identity:   identity,
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio until shutdown.
func (s *Server) Serve(_ context.Context) error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(searchQuoteTool(), s.handleSearchQuote)
	s.mcp.AddTool(selectResultTool(), s.handleSelectResult)
	s.mcp.AddTool(compileClipsTool(), s.handleCompileClips)
	s.mcp.AddTool(saveClipTool(), s.handleSaveClip)
}

func searchQuoteTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_quote",
		Description: "Search the series corpus for a quote and list the hits by position",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"quote": map[string]interface{}{
					"type":        "string",
					"description": "Free-text quote to search for",
				},
			},
			Required: []string{"quote"},
		},
	}
}

func selectResultTool() mcp.Tool {
	return mcp.Tool{
		Name:        "select_result",
		Description: "Cut the clip at a 1-based position from the last search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"position": map[string]interface{}{
					"type":        "integer",
					"description": "1-based position in the last search results",
					"minimum":     1,
				},
			},
			Required: []string{"position"},
		},
	}
}

func compileClipsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "compile_clips",
		Description: `Merge results into one clip: "all", a range like "2-4", or space-separated positions`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"selection": map[string]interface{}{
					"type":        "string",
					"description": `Selector set, e.g. "all", "2-4" or "3 1 2"`,
				},
			},
			Required: []string{"selection"},
		},
	}
}

func saveClipTool() mcp.Tool {
	return mcp.Tool{
		Name:        "save_clip",
		Description: "Save the current clip under a name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Name for the saved clip, unique per user",
				},
			},
			Required: []string{"name"},
		},
	}
}

func (s *Server) handleSearchQuote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	quote, err := stringArg(request, "quote")
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, "search", []string{quote})
}

func (s *Server) handleSelectResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid arguments")
	}
	position, ok := args["position"].(float64)
	if !ok || position < 1 {
		return nil, fmt.Errorf("position must be a positive integer")
	}
	return s.dispatch(ctx, "select", []string{fmt.Sprintf("%d", int(position))})
}

func (s *Server) handleCompileClips(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selection, err := stringArg(request, "selection")
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, "compile", strings.Fields(selection))
}

func (s *Server) handleSaveClip(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := stringArg(request, "name")
	if err != nil {
		return nil, err
	}
	return s.dispatch(ctx, "save", []string{name})
}

// dispatch runs the command and adapts the envelope to a text result.
func (s *Server) dispatch(ctx context.Context, command string, args []string) (*mcp.CallToolResult, error) {
	resp, err := s.dispatcher.Dispatch(ctx, s.identity, command, args)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", types.KindOf(err).String(), err.Error())
	}

	switch resp.Type {
	case bot.ResponseVideo:
		return mcp.NewToolResultText(fmt.Sprintf("clip rendered: %s (%d bytes)", resp.Filename, len(resp.Video))), nil
	case bot.ResponseJSON:
		encoded, err := json.MarshalIndent(resp.Payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
		return mcp.NewToolResultText(string(encoded)), nil
	default:
		return mcp.NewToolResultText(resp.Content), nil
	}
}

func stringArg(request mcp.CallToolRequest, key string) (string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid arguments")
	}
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%s parameter is required", key)
	}
	return value, nil
}

