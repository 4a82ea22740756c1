package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

type fakeTool struct {
	name   string
	called bool
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake" }
func (f *fakeTool) InputSchema() map[string]any { return map[string]any{"type": "object"} }
func (f *fakeTool) Invoke(ctx context.Context, rc *RunContext, args json.RawMessage) (any, error) {
	f.called = true
	return map[string]string{"ok": "yes"}, nil
}

func TestRegistry_InvokeLocalTool(t *testing.T) {
	tool := &fakeTool{name: "ping"}
	registry := NewRegistry(nil, tool)

	rc := &RunContext{UserID: uuid.New(), SessionID: uuid.New()}
	result, err := registry.Invoke(context.Background(), rc, "ping", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tool.called {
		t.Fatalf("expected tool to be invoked")
	}
	if result == nil {
		t.Fatalf("expected a result")
	}
}

func TestRegistry_UnknownTool(t *testing.T) {
	registry := NewRegistry(nil)
	rc := &RunContext{UserID: uuid.New(), SessionID: uuid.New()}
	_, err := registry.Invoke(context.Background(), rc, "does_not_exist", nil)
	if err == nil {
		t.Fatalf("expected an error for unknown tool")
	}
}

func TestRegistry_DuplicateNamePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected a panic on duplicate tool names")
		}
	}()
	NewRegistry(nil, &fakeTool{name: "dup"}, &fakeTool{name: "dup"})
}
