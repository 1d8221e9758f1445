package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// PropsListTool handles hubspot.props.list: property introspection for
// one or more object types.
type PropsListTool struct {
	run Runner
}

// NewPropsListTool creates a PropsListTool with the given runner.
func NewPropsListTool(run Runner) *PropsListTool {
	return &PropsListTool{run: run}
}

// Definition returns the MCP tool definition for registration.
func (t *PropsListTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.props.list",
		mcp.WithDescription(
			"[READ] List properties for HubSpot CRM object types. Returns "+
				"property names, types, labels, and group assignments. Requires: "+
				"HubSpot Admin license or active trial.",
		),
		mcp.WithString("object_types",
			mcp.Required(),
			mcp.Description("Comma-separated object types (e.g. \"contacts\" or \"contacts,companies\")."),
		),
		mcp.WithString("match",
			mcp.Description("Optional filter string to match property names/labels."),
		),
	)
}

// Handle processes the hubspot.props.list tool call.
func (t *PropsListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectTypes := req.GetString("object_types", "")
	if objectTypes == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"'object_types' is required",
			&envelope.Safety{Impact: envelope.ImpactRead},
		)), nil
	}

	args := []string{"hubspot", "props", "list", objectTypes, "--json"}
	if match := req.GetString("match", ""); match != "" {
		args = append(args, "--match", match)
	}

	res := t.run.Run(ctx, args, runner.Options{Tool: "props.list"})

	summary := fmt.Sprintf("Properties for %s", objectTypes)
	if !res.OK() {
		summary = "Props list failed"
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary: summary,
		Safety:  &envelope.Safety{Impact: envelope.ImpactRead},
	})), nil
}
