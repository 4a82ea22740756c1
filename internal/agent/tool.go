// Package agent implements a tool-calling language-model loop
// over an explicit, value-based tool registry and a small state machine per
// turn.
package agent

import (
	"context"
	"encoding/json"

	"coachspine/internal/apperr"
	"coachspine/internal/mcpclient"
)

func unknownToolError(name string) error {
	return apperr.Tool("unknown tool %q", name)
}

// Tool is the interface every registry entry satisfies. Unlike a
// decorator-registered function with implicit global state, a Tool is a
// plain value constructed once at agent-build time and held in a list
// literal passed into the registry constructor.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Invoke(ctx context.Context, rc *RunContext, arguments json.RawMessage) (any, error)
}

// Registry resolves a tool name to its implementation and routes
// mcp__tracker__* names to the MCP client instead of a local handler.
// Namespacing lives here, not scattered across string-prefix checks at
// call sites.
type Registry struct {
	local   map[string]Tool
	mcp     *mcpclient.Client
	tracker []mcpclient.ToolSchema
}

// NewRegistry builds a registry from an explicit tool list; duplicate
// names across the list are a programmer error and panic immediately
// rather than silently shadowing one tool with another.
func NewRegistry(mcp *mcpclient.Client, tools ...Tool) *Registry {
	r := &Registry{local: make(map[string]Tool, len(tools)), mcp: mcp}
	for _, t := range tools {
		if _, exists := r.local[t.Name()]; exists {
			panic("agent: duplicate tool name registered: " + t.Name())
		}
		r.local[t.Name()] = t
	}
	return r
}

// Tools returns every registered local tool, for building the model's
// tool schema list.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.local))
	for _, t := range r.local {
		out = append(out, t)
	}
	return out
}

// DiscoverTrackerTools queries the MCP server's current tool list and
// caches their schemas so the runtime can advertise them to the model
// alongside the local tools. Safe to call once at agent startup; a
// failure here is non-fatal (the tracker may be temporarily down) and
// simply leaves the tracker tool surface empty until the next call.
func (r *Registry) DiscoverTrackerTools(ctx context.Context) error {
	if r.mcp == nil {
		return nil
	}
	schemas, err := r.mcp.ListTools(ctx)
	if err != nil {
		return err
	}
	r.tracker = schemas
	return nil
}

// TrackerTools returns the cached tracker tool schemas discovered by
// DiscoverTrackerTools.
func (r *Registry) TrackerTools() []mcpclient.ToolSchema {
	return r.tracker
}

// Invoke dispatches name to either the MCP client (mcp__tracker__*) or a
// local tool. The namespace prefix is the entire routing rule.
func (r *Registry) Invoke(ctx context.Context, rc *RunContext, name string, arguments json.RawMessage) (any, error) {
	if mcpclient.IsTrackerTool(name) {
		var args map[string]any
		if len(arguments) > 0 {
			if err := json.Unmarshal(arguments, &args); err != nil {
				return nil, err
			}
		}
		result, err := r.mcp.CallTool(ctx, mcpclient.BareName(name), args)
		if err != nil {
			return nil, err
		}
		if result.Structured != nil {
			return result.Structured, nil
		}
		return result.Raw, nil
	}

	tool, ok := r.local[name]
	if !ok {
		return nil, unknownToolError(name)
	}
	return tool.Invoke(ctx, rc, arguments)
}
