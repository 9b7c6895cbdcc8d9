package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/spetersoncode/perpetual/tool"
)

// Tools is the part of the tool registry the server exposes.
type Tools interface {
	Names() []string
	ToolOf(name string) (*tool.Tool, error)
}

// ServerOption configures a Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	name    string
	version string
	logger  *slog.Logger
}

// WithName sets the server name reported to MCP clients.
func WithName(name string) ServerOption {
	return func(c *serverConfig) {
		c.name = name
	}
}

// WithVersion sets the server version reported to MCP clients.
func WithVersion(version string) ServerOption {
	return func(c *serverConfig) {
		c.version = version
	}
}

// WithLogger sets the logger tool calls are reported to.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(c *serverConfig) {
		c.logger = logger
	}
}

// NewServer creates an MCP server that exposes the installed tools. The
// tool set is fixed when the server is created; tools installed later are
// served by a new server.
//
// Example:
//
//	registry, err := tool.Open(ctx, "tools", client)
//	if err != nil {
//	    return err
//	}
//	s := mcp.NewServer(registry, mcp.WithName("perpetual-tools"))
//	server.ServeStdio(s)
func NewServer(tools Tools, opts ...ServerOption) *server.MCPServer {
	cfg := &serverConfig{
		name:    "perpetual",
		version: "1.0.0",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := server.NewMCPServer(
		cfg.name,
		cfg.version,
		server.WithToolCapabilities(true),
	)

	for _, name := range tools.Names() {
		t, err := tools.ToolOf(name)
		if err != nil {
			cfg.logger.Warn("skipping tool", "tool", name, "error", err)
			continue
		}
		s.AddTool(ToMCPTool(t), createMCPHandler(t, cfg.logger))
	}

	return s
}

// createMCPHandler validates the arguments against the tool's schema and
// runs it. Tool failures are reported to the client as error results.
func createMCPHandler(t *tool.Tool, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := decodeArguments(req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if err := t.Descriptor.Validate(args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		value, err := t.Call(ctx, args)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Debug("mcp tool call failed", "tool", t.Name, "error", err)
		} else {
			logger.Debug("mcp tool call", "tool", t.Name)
		}
		return ToMCPResult(value, err), nil
	}
}

// decodeArguments round-trips the arguments through JSON so numbers arrive
// as json.Number, the same shape the agent's extractor produces.
func decodeArguments(raw map[string]any) (map[string]any, error) {
	if raw == nil {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	return args, nil
}

// ServeStdio serves the installed tools over stdin and stdout, the
// transport MCP clients use for servers they start as subprocesses.
func ServeStdio(tools Tools, opts ...ServerOption) error {
	return server.ServeStdio(NewServer(tools, opts...))
}
