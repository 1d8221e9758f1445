package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// Schema tools depend on the CLI's local schema cache. On a first run
// the cache doesn't exist yet; rather than bouncing that error back to
// the caller, the handlers sync the cache once and retry the original
// command exactly once.

// isSchemaCacheMiss detects the first-run cache-miss signal in CLI output.
func isSchemaCacheMiss(res runner.Result) bool {
	text := strings.ToLower(res.Stderr + "\n" + res.Stdout)
	return strings.Contains(text, "no cached schema found")
}

// runSchemaWithAutoSync runs a schema command, transparently syncing the
// cache and retrying once on a cache miss. The second return value
// reports whether an auto-sync happened.
func runSchemaWithAutoSync(ctx context.Context, run Runner, args []string, tool string) (runner.Result, bool) {
	res := run.Run(ctx, args, runner.Options{Tool: tool})
	if res.OK() || !isSchemaCacheMiss(res) {
		return res, false
	}

	sync := run.Run(ctx, []string{"hubspot", "schema", "sync", "--json"}, runner.Options{Tool: "schema.list"})
	if !sync.OK() {
		return res, false
	}

	retry := run.Run(ctx, args, runner.Options{Tool: tool})
	return retry, true
}

// SchemaListTool handles hubspot.schema.list.
type SchemaListTool struct {
	run Runner
}

// NewSchemaListTool creates a SchemaListTool with the given runner.
func NewSchemaListTool(run Runner) *SchemaListTool {
	return &SchemaListTool{run: run}
}

// Definition returns the MCP tool definition for registration.
func (t *SchemaListTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.schema.list",
		mcp.WithDescription(
			"[READ] List all HubSpot CRM object types (contacts, companies, "+
				"deals, custom objects). Returns object type names, labels, and "+
				"whether they are standard or custom.",
		),
	)
}

// Handle processes the hubspot.schema.list tool call.
func (t *SchemaListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, autoSynced := runSchemaWithAutoSync(ctx, t.run,
		[]string{"hubspot", "schema", "ls", "--json"}, "schema.list")

	summary := "Listed CRM object types"
	switch {
	case res.OK() && autoSynced:
		summary = "Listed CRM object types (auto-synced schema cache)"
	case !res.OK():
		summary = "Schema list failed"
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary: summary,
		Safety:  &envelope.Safety{Impact: envelope.ImpactRead},
	})), nil
}

// SchemaGetTool handles hubspot.schema.get.
type SchemaGetTool struct {
	run Runner
}

// NewSchemaGetTool creates a SchemaGetTool with the given runner.
func NewSchemaGetTool(run Runner) *SchemaGetTool {
	return &SchemaGetTool{run: run}
}

// Definition returns the MCP tool definition for registration.
func (t *SchemaGetTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.schema.get",
		mcp.WithDescription(
			"[READ] Show the full schema for a HubSpot CRM object type. "+
				"Returns properties, associations, and metadata for the object type.",
		),
		mcp.WithString("object_type",
			mcp.Required(),
			mcp.Description("CRM object type (e.g. \"contacts\", \"companies\", \"deals\", or a custom object ID)."),
		),
	)
}

// Handle processes the hubspot.schema.get tool call.
func (t *SchemaGetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectType := req.GetString("object_type", "")
	if objectType == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"'object_type' is required",
			&envelope.Safety{Impact: envelope.ImpactRead},
		)), nil
	}

	res, autoSynced := runSchemaWithAutoSync(ctx, t.run,
		[]string{"hubspot", "schema", "show", objectType, "--json"}, "schema.get")

	summary := fmt.Sprintf("Schema for %s", objectType)
	switch {
	case res.OK() && autoSynced:
		summary = fmt.Sprintf("Schema for %s (auto-synced schema cache)", objectType)
	case !res.OK():
		summary = fmt.Sprintf("Schema get failed for %s", objectType)
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary: summary,
		Safety:  &envelope.Safety{Impact: envelope.ImpactRead},
	})), nil
}
