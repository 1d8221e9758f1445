package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// DoctorTool handles hubspot.auth.doctor: connectivity, token, scope,
// and API health diagnostics.
type DoctorTool struct {
	run Runner
}

// NewDoctorTool creates a DoctorTool with the given runner.
func NewDoctorTool(run Runner) *DoctorTool {
	return &DoctorTool{run: run}
}

// Definition returns the MCP tool definition for registration.
func (t *DoctorTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.auth.doctor",
		mcp.WithDescription(
			"[READ] Run HubSpot health diagnostics. Checks connectivity, token "+
				"validity, scopes, and API accessibility. Returns a structured "+
				"health report with pass/fail checks. Requires: HubSpot Admin "+
				"license or active trial.",
		),
	)
}

// Handle processes the hubspot.auth.doctor tool call.
func (t *DoctorTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := t.run.Run(ctx, []string{"hubspot", "doctor", "--json"}, runner.Options{Tool: "doctor"})

	summary := "HubSpot diagnostics"
	if !res.OK() {
		summary = "HubSpot diagnostics failed"
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary: summary,
		Safety:  &envelope.Safety{Impact: envelope.ImpactRead},
	})), nil
}
