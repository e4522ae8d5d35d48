// Package mcp connects agents to Model Context Protocol servers and exposes
// the discovered server tools as named tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/agentfactory/config"
	"github.com/hupe1980/agentfactory/logging"
	"github.com/hupe1980/agentfactory/tool"
)

// DefaultTimeout bounds connecting to a server and each tool call.
const DefaultTimeout = 60 * time.Second

// Client is the subset of the mcp-go client used by the bridge.
type Client interface {
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// Dialer opens a client for a server configuration.
type Dialer func(ctx context.Context, cfg config.MCPConfig) (Client, error)

// Options configures a Bridge.
type Options struct {
	Logger logging.Logger
	// Dial replaces the default mcp-go dialer.
	Dial Dialer
	// ClientName is announced during initialization.
	ClientName string
}

type server struct {
	name    string
	timeout time.Duration
	cache   bool
	client  Client

	mu    sync.Mutex
	tools []mcp.Tool
}

// Bridge holds the MCP servers of one agent.
type Bridge struct {
	servers []*server
	logger  *logging.ContextLogger
}

// Connect dials every configured server. A server that cannot be reached or
// listed is logged and skipped.
func Connect(ctx context.Context, agentName string, servers []config.MCPConfig, optFns ...func(o *Options)) *Bridge {
	opts := Options{
		Logger:     logging.NoOpLogger{},
		ClientName: "agentfactory",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dial == nil {
		opts.Dial = dialer(opts.ClientName)
	}

	b := &Bridge{logger: logging.With(opts.Logger, "component", "mcp", "agent", agentName)}

	for i, cfg := range servers {
		name := cfg.Name
		if name == "" {
			name = fmt.Sprintf("MCP %d", i+1)
		}

		timeout := timeoutOf(cfg)

		c, err := opts.Dial(ctx, cfg)
		if err != nil {
			b.logger.Warn("mcp server unavailable, skipping", "server", name, "error", err.Error())
			continue
		}

		srv := &server{name: name, timeout: timeout, cache: cfg.CachesToolsList(), client: c}
		if _, err := srv.listTools(ctx); err != nil {
			b.logger.Warn("mcp tool discovery failed, skipping", "server", name, "error", err.Error())
			_ = c.Close()
			continue
		}

		b.logger.Info("mcp server connected", "server", name, "transport", cfg.Transport())
		b.servers = append(b.servers, srv)
	}

	return b
}

func timeoutOf(cfg config.MCPConfig) time.Duration {
	if cfg.TimeoutSeconds > 0 {
		return time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return DefaultTimeout
}

// dialer connects with mcp-go. The client is started on ctx, which must
// outlive the bridge; initialization is bounded by the server timeout.
func dialer(clientName string) Dialer {
	return func(ctx context.Context, cfg config.MCPConfig) (Client, error) {
		var (
			c   *mcpclient.Client
			err error
		)

		switch cfg.Transport() {
		case "sse":
			c, err = mcpclient.NewSSEMCPClient(cfg.Endpoint())
		default:
			var t *transport.StreamableHTTP
			t, err = transport.NewStreamableHTTP(cfg.Endpoint())
			if err == nil {
				c = mcpclient.NewClient(t)
			}
		}

		if err != nil {
			return nil, fmt.Errorf("create %s client: %w", cfg.Transport(), err)
		}

		if err := c.Start(ctx); err != nil {
			return nil, fmt.Errorf("start client: %w", err)
		}

		initReq := mcp.InitializeRequest{}
		initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
		initReq.Params.ClientInfo = mcp.Implementation{Name: clientName, Version: "1.0.0"}

		ictx, cancel := context.WithTimeout(ctx, timeoutOf(cfg))
		defer cancel()

		if _, err := c.Initialize(ictx, initReq); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("initialize: %w", err)
		}

		return c, nil
	}
}

func (s *server) listTools(ctx context.Context) ([]mcp.Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache && s.tools != nil {
		return s.tools, nil
	}

	lctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.client.ListTools(lctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}

	s.tools = res.Tools
	return s.tools, nil
}

// Tools returns the discovered tools as named tools.
func (b *Bridge) Tools(ctx context.Context) []tool.Tool {
	var out []tool.Tool

	for _, s := range b.servers {
		tools, err := s.listTools(ctx)
		if err != nil {
			b.logger.Warn("mcp tool listing failed", "server", s.name, "error", err.Error())
			continue
		}

		for _, t := range tools {
			out = append(out, remoteTool(s, t))
		}
	}

	return out
}

// Capabilities returns one "name: description" line per discovered tool.
func (b *Bridge) Capabilities(ctx context.Context) []string {
	tools := b.Tools(ctx)

	lines := make([]string, len(tools))
	for i, t := range tools {
		lines[i] = fmt.Sprintf("%s: %s", t.Name(), t.Description())
	}

	return lines
}

// Servers returns the names of the connected servers.
func (b *Bridge) Servers() []string {
	names := make([]string, len(b.servers))
	for i, s := range b.servers {
		names[i] = s.name
	}
	return names
}

// Close closes every server connection.
func (b *Bridge) Close() {
	for _, s := range b.servers {
		if err := s.client.Close(); err != nil {
			b.logger.Warn("mcp server close error", "server", s.name, "error", err.Error())
		}
	}
}

// remoteTool adapts one MCP tool to a tool.FunctionTool named
// mcp_<server>_<tool>. Arguments are checked against the tool's input schema
// before the server is called.
func remoteTool(s *server, def mcp.Tool) *tool.FunctionTool {
	name := fmt.Sprintf("mcp_%s_%s", sanitize(s.name), sanitize(def.Name))

	description := def.Description
	if description == "" {
		description = fmt.Sprintf("MCP tool %q from server %q", def.Name, s.name)
	}

	return tool.NewFunctionTool(name, description, inputSchema(def), func(ctx context.Context, args map[string]any) (string, error) {
		req := mcp.CallToolRequest{}
		req.Params.Name = def.Name
		req.Params.Arguments = args

		cctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		res, err := s.client.CallTool(cctx, req)
		if err != nil {
			return "", fmt.Errorf("call %s on %s: %w", def.Name, s.name, err)
		}

		text := content(res)
		if res.IsError {
			return "", tool.NewToolError(name, text, tool.CodeExecution)
		}

		return text, nil
	})
}

func inputSchema(def mcp.Tool) map[string]any {
	params := map[string]any{"type": "object"}

	data, err := json.Marshal(def.InputSchema)
	if err != nil {
		return params
	}

	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil || len(schema) == 0 {
		return params
	}

	return schema
}

func content(res *mcp.CallToolResult) string {
	var parts []string

	for _, c := range res.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := json.Marshal(v); err == nil {
				parts = append(parts, string(data))
			}
		}
	}

	return strings.Join(parts, "\n")
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
