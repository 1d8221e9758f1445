package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// QueryTool handles hubspot.objects.query: Search-API lookups, capped
// at 10k records. Full extraction past the ceiling is objects.pull.
type QueryTool struct {
	run Runner
}

// NewQueryTool creates a QueryTool with the given runner.
func NewQueryTool(run Runner) *QueryTool {
	return &QueryTool{run: run}
}

// Definition returns the MCP tool definition for registration.
func (t *QueryTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.objects.query",
		mcp.WithDescription(
			"[READ] Search HubSpot CRM objects (Search API; capped at 10k). "+
				"Use hubspot.objects.pull for full extraction past the ceiling.",
		),
		mcp.WithString("object_type",
			mcp.Required(),
			mcp.Description("CRM object type (e.g. \"contacts\", \"companies\", \"deals\")."),
		),
		mcp.WithArray("where",
			mcp.Description("Filter clauses in property=value form (e.g. [\"email=@acme.com\"])."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("properties",
			mcp.Description("Comma-separated properties to include."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max records (default 100, max 10000)."),
			mcp.DefaultNumber(100),
		),
	)
}

// Handle processes the hubspot.objects.query tool call.
func (t *QueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectType := req.GetString("object_type", "")
	if objectType == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"'object_type' is required",
			&envelope.Safety{Impact: envelope.ImpactRead},
		)), nil
	}

	args := []string{"hubspot", "query", objectType, "--json"}
	for _, clause := range req.GetStringSlice("where", nil) {
		args = append(args, "--where", clause)
	}
	if properties := req.GetString("properties", ""); properties != "" {
		args = append(args, "--properties", properties)
	}
	if limit := req.GetInt("limit", 100); limit != 100 {
		args = append(args, "--limit", strconv.Itoa(limit))
	}

	res := t.run.Run(ctx, args, runner.Options{Tool: "objects.query"})

	summary := fmt.Sprintf("Query %s", objectType)
	if !res.OK() {
		summary = fmt.Sprintf("Query failed for %s", objectType)
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary: summary,
		Safety:  &envelope.Safety{Impact: envelope.ImpactRead},
	})), nil
}
