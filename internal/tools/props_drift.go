package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// PropsDriftTool handles hubspot.props.drift: comparing a local
// property spec file against the live portal.
type PropsDriftTool struct {
	run Runner
}

// NewPropsDriftTool creates a PropsDriftTool with the given runner.
func NewPropsDriftTool(run Runner) *PropsDriftTool {
	return &PropsDriftTool{run: run}
}

// Definition returns the MCP tool definition for registration.
func (t *PropsDriftTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.props.drift",
		mcp.WithDescription(
			"[ANALYZE] Detect property drift between a spec file and the live "+
				"HubSpot portal. Reports additions, removals, and modifications. "+
				"Requires: HubSpot Admin license or active trial.",
		),
		mcp.WithString("spec_path",
			mcp.Required(),
			mcp.Description("Path to the property spec file (YAML or JSON)."),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Override timeout (default 60s)."),
		),
	)
}

// Handle processes the hubspot.props.drift tool call.
func (t *PropsDriftTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	specPath := req.GetString("spec_path", "")
	if specPath == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"'spec_path' is required",
			&envelope.Safety{Impact: envelope.ImpactAnalyze},
		)), nil
	}

	res := t.run.Run(ctx,
		[]string{"hubspot", "props", "drift", specPath, "--json"},
		runner.Options{
			Tool:    "props.drift",
			Timeout: timeoutOverride(req.GetInt("timeout_seconds", 0)),
		})

	summary := "Property drift analysis"
	if !res.OK() {
		summary = "Property drift check failed"
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary: summary,
		Safety:  &envelope.Safety{Impact: envelope.ImpactAnalyze},
	})), nil
}
