package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/artifacts"
	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// EngagementsPullTool handles hubspot.engagements.pull: extraction of
// emails, calls, meetings, notes, and tasks into one CSV per type.
type EngagementsPullTool struct {
	run Runner
	art *artifacts.Manager
}

// NewEngagementsPullTool creates an EngagementsPullTool.
func NewEngagementsPullTool(run Runner, art *artifacts.Manager) *EngagementsPullTool {
	return &EngagementsPullTool{run: run, art: art}
}

// Definition returns the MCP tool definition for registration.
func (t *EngagementsPullTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.engagements.pull",
		mcp.WithDescription(
			"[READ] Pull HubSpot engagements (emails, calls, meetings, notes, "+
				"tasks). Auto-falls back to async export when hitting the 10k "+
				"ceiling per type.",
		),
		mcp.WithString("engagement_types",
			mcp.Description("Comma-separated types (e.g. \"emails,calls,meetings\"). Omit for all."),
		),
		mcp.WithString("properties",
			mcp.Description("Comma-separated properties to include."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max records per type (0 = no limit)."),
			mcp.DefaultNumber(0),
		),
		mcp.WithBoolean("auto_export_fallback",
			mcp.Description("Switch to async export when hitting 10k (default true)."),
			mcp.DefaultBool(true),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Override timeout (default 900s / 15 min)."),
		),
	)
}

// Handle processes the hubspot.engagements.pull tool call.
func (t *EngagementsPullTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scratch, err := t.art.NewScratchDir()
	if err != nil {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"cannot allocate scratch directory: "+err.Error(),
			&envelope.Safety{Impact: envelope.ImpactRead},
		)), nil
	}
	outDir := filepath.Join(scratch, "engagements")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"cannot allocate output directory: "+err.Error(),
			&envelope.Safety{Impact: envelope.ImpactRead},
		)), nil
	}

	args := []string{"hubspot", "engagements", "pull", "--out-dir", outDir, "--json-summary"}
	if types := req.GetString("engagement_types", ""); types != "" {
		args = append(args, "--types", types)
	}
	if properties := req.GetString("properties", ""); properties != "" {
		args = append(args, "--properties", properties)
	}
	if limit := req.GetInt("limit", 0); limit > 0 {
		args = append(args, "--limit", strconv.Itoa(limit))
	}
	if req.GetBool("auto_export_fallback", true) {
		args = append(args, "--auto-export-fallback")
	}

	res := t.run.Run(ctx, args, runner.Options{
		Tool:    "engagements.pull",
		Timeout: timeoutOverride(req.GetInt("timeout_seconds", 0)),
	})

	var files []map[string]any
	totalRows := 0
	if res.OK() {
		matches, _ := filepath.Glob(filepath.Join(outDir, "*.csv"))
		for _, csvFile := range matches {
			meta := t.art.ReadTabularMetadata(csvFile)
			files = append(files, metadataMap(meta))
			totalRows += meta.RowCount
		}
	}

	extra := map[string]any{}
	if len(files) > 0 {
		extra["files"] = files
		extra["total_files"] = len(files)
		extra["total_rows"] = totalRows
	} else {
		t.art.Cleanup(scratch)
	}

	summary := fmt.Sprintf("Pulled %d engagements across %d types", totalRows, len(files))
	if !res.OK() {
		summary = "Engagements pull failed"
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary:   summary,
		ExtraData: extra,
		Safety:    &envelope.Safety{Impact: envelope.ImpactRead},
	})), nil
}
