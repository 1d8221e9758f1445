package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// WhoamiTool handles hubspot.auth.whoami: the cheapest possible
// connectivity check against the connected portal.
type WhoamiTool struct {
	run Runner
}

// NewWhoamiTool creates a WhoamiTool with the given runner.
func NewWhoamiTool(run Runner) *WhoamiTool {
	return &WhoamiTool{run: run}
}

// Definition returns the MCP tool definition for registration.
func (t *WhoamiTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.auth.whoami",
		mcp.WithDescription(
			"[READ] Check HubSpot authentication and show portal identity. "+
				"Returns the connected portal ID, hub name, and token scopes. "+
				"Use this to verify that the server can reach HubSpot.",
		),
	)
}

// Handle processes the hubspot.auth.whoami tool call.
func (t *WhoamiTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := t.run.Run(ctx, []string{"hubspot", "whoami", "--json"}, runner.Options{Tool: "whoami"})

	summary := "HubSpot auth check"
	if !res.OK() {
		summary = "HubSpot auth check failed"
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary: summary,
		Safety:  &envelope.Safety{Impact: envelope.ImpactRead},
	})), nil
}
