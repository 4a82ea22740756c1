// Package mcpclient is a stdio JSON-RPC client to the external tracker's
// MCP tool-server. Deliberately ephemeral: every call spawns its
// own subprocess, performs the initialize handshake, invokes exactly one
// tool, and tears the session down. This trades per-call spawn latency
// for zero reconnection-state bugs, and keeps each call's lifetime
// bounded by construction.
package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"coachspine/internal/apperr"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Client holds the spawn configuration (command, args, credential env)
// needed to stand up a session per call; it carries no live connection
// state between calls.
type Client struct {
	command string
	args    []string
	env     []string

	clientName    string
	clientVersion string
}

// New constructs a Client that spawns command with args on every call.
// env carries the tracker credential (e.g. "TRACKER_API_KEY=...") through
// the spawn environment, never as a tool argument.
func New(command string, args []string, env []string) *Client {
	return &Client{
		command: command, args: args, env: env,
		clientName: "coachspine", clientVersion: "1.0.0",
	}
}

// Result is the structured or raw-text content the tracker returned.
// Structured is populated when the concatenated text content blocks
// parse as JSON; Raw always holds that concatenated text.
type Result struct {
	Structured any
	Raw        string
}

// CallTool performs the full spawn → initialize → call → close
// lifecycle for one invocation of name with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*Result, error) {
	mcpClient, err := client.NewStdioMCPClient(c.command, c.env, c.args...)
	if err != nil {
		return nil, apperr.WrapTool(err, "spawning tracker MCP server")
	}
	defer mcpClient.Close()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: c.clientName, Version: c.clientVersion}

	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		return nil, apperr.WrapTool(err, "initializing tracker MCP session")
	}

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = name
	callReq.Params.Arguments = arguments

	callResult, err := mcpClient.CallTool(ctx, callReq)
	if err != nil {
		return nil, apperr.WrapTool(err, "calling tracker tool %q", name)
	}
	if callResult.IsError {
		return nil, apperr.Tool("tracker tool %q reported an error: %s", name, contentText(callResult.Content))
	}

	raw := contentText(callResult.Content)
	result := &Result{Raw: raw}

	var structured any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &structured); err == nil {
		result.Structured = structured
	}
	return result, nil
}

// ToolSchema is the subset of an MCP tool listing the agent registry
// needs to build a model-facing tool schema.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ListTools performs a spawn, initialize, list_tools, close cycle to
// discover the tracker's current tool surface, the same ephemeral
// lifecycle CallTool uses.
func (c *Client) ListTools(ctx context.Context) ([]ToolSchema, error) {
	mcpClient, err := client.NewStdioMCPClient(c.command, c.env, c.args...)
	if err != nil {
		return nil, apperr.WrapTool(err, "spawning tracker MCP server")
	}
	defer mcpClient.Close()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: c.clientName, Version: c.clientVersion}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		return nil, apperr.WrapTool(err, "initializing tracker MCP session")
	}

	listResult, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, apperr.WrapTool(err, "listing tracker tools")
	}

	out := make([]ToolSchema, 0, len(listResult.Tools))
	for _, t := range listResult.Tools {
		schema := map[string]any{
			"type":       "object",
			"properties": t.InputSchema.Properties,
			"required":   t.InputSchema.Required,
		}
		out = append(out, ToolSchema{Name: ToolName(t.Name), Description: t.Description, InputSchema: schema})
	}
	return out, nil
}

// contentText concatenates every text content block in order; non-text
// blocks (images, embedded resources) are skipped — the tracker's tool
// surface only ever returns text/JSON content.
func contentText(blocks []mcp.Content) string {
	var sb strings.Builder
	for _, block := range blocks {
		if tc, ok := block.(mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

// ToolName namespaces a bare tracker tool name the way the agent
// registry expects: "mcp__tracker__<name>".
func ToolName(name string) string {
	return fmt.Sprintf("mcp__tracker__%s", name)
}

// IsTrackerTool reports whether a registry-qualified tool name should be
// routed to this client rather than resolved locally.
func IsTrackerTool(qualifiedName string) bool {
	return strings.HasPrefix(qualifiedName, "mcp__tracker__")
}

// BareName strips the "mcp__tracker__" namespace prefix.
func BareName(qualifiedName string) string {
	return strings.TrimPrefix(qualifiedName, "mcp__tracker__")
}
