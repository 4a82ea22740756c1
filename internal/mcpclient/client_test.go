package mcpclient

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestToolNameRoundTrip(t *testing.T) {
	qualified := ToolName("get_workouts")
	if qualified != "mcp__tracker__get_workouts" {
		t.Fatalf("unexpected qualified name %q", qualified)
	}
	if !IsTrackerTool(qualified) {
		t.Fatalf("expected %q to route to the tracker", qualified)
	}
	if got := BareName(qualified); got != "get_workouts" {
		t.Fatalf("expected bare name get_workouts, got %q", got)
	}
}

func TestIsTrackerTool_LocalNames(t *testing.T) {
	for _, name := range []string{"nutrition_summary", "detect_plateau", "mcp__other__get_workouts"} {
		if IsTrackerTool(name) {
			t.Fatalf("%q must resolve locally, not via the tracker client", name)
		}
	}
}

func TestContentText_ConcatenatesTextBlocks(t *testing.T) {
	blocks := []mcp.Content{
		mcp.TextContent{Type: "text", Text: `{"workouts":`},
		mcp.TextContent{Type: "text", Text: `[]}`},
	}
	if got := contentText(blocks); got != `{"workouts":[]}` {
		t.Fatalf("unexpected concatenation %q", got)
	}
}

func TestContentText_SkipsNonText(t *testing.T) {
	blocks := []mcp.Content{
		mcp.ImageContent{Type: "image", Data: "aGk=", MIMEType: "image/png"},
		mcp.TextContent{Type: "text", Text: "ok"},
	}
	if got := contentText(blocks); got != "ok" {
		t.Fatalf("expected non-text blocks to be skipped, got %q", got)
	}
}
