package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/artifacts"
	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// PullTool handles hubspot.objects.pull: full CRM extraction past the
// 10k Search API ceiling, writing a CSV into a scratch directory.
// Small results are inlined as records; large ones come back as an
// artifact reference with column and row-count metadata.
type PullTool struct {
	run Runner
	art *artifacts.Manager
}

// NewPullTool creates a PullTool with the given runner and artifact manager.
func NewPullTool(run Runner, art *artifacts.Manager) *PullTool {
	return &PullTool{run: run, art: art}
}

// Definition returns the MCP tool definition for registration.
func (t *PullTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.objects.pull",
		mcp.WithDescription(
			"[READ] Pull HubSpot CRM objects — breaks the 10k Search API ceiling. "+
				"Uses recursive date-range windowing to retrieve all records beyond "+
				"the 10,000 hard cap; records are deduplicated across windows. "+
				"Returns an artifact reference to the output CSV for large pulls.",
		),
		mcp.WithString("object_type",
			mcp.Required(),
			mcp.Description("CRM object type (e.g. \"contacts\", \"companies\", \"deals\")."),
		),
		mcp.WithString("properties",
			mcp.Description("Comma-separated properties to include (e.g. \"email,firstname,lastname\")."),
		),
		mcp.WithString("associations",
			mcp.Description("Comma-separated associated object types (e.g. \"contacts,deals\")."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max records (0 = no limit, pulls everything)."),
			mcp.DefaultNumber(0),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Override timeout (default 900s / 15 min)."),
		),
	)
}

// Handle processes the hubspot.objects.pull tool call.
func (t *PullTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectType := req.GetString("object_type", "")
	if objectType == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"'object_type' is required",
			&envelope.Safety{Impact: envelope.ImpactRead},
		)), nil
	}

	scratch, err := t.art.NewScratchDir()
	if err != nil {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"cannot allocate scratch directory: "+err.Error(),
			&envelope.Safety{Impact: envelope.ImpactRead},
		)), nil
	}
	outPath := filepath.Join(scratch, objectType+".csv")

	args := []string{"hubspot", "pull", objectType, "--output", outPath, "--json-summary"}
	if properties := req.GetString("properties", ""); properties != "" {
		args = append(args, "--properties", properties)
	}
	if associations := req.GetString("associations", ""); associations != "" {
		args = append(args, "--associations", associations)
	}
	if limit := req.GetInt("limit", 0); limit > 0 {
		args = append(args, "--limit", strconv.Itoa(limit))
	}

	res := t.run.Run(ctx, args, runner.Options{
		Tool:    "objects.pull",
		Timeout: timeoutOverride(req.GetInt("timeout_seconds", 0)),
	})

	var artifact *artifacts.Artifact
	extra := map[string]any{}

	switch {
	case res.OK() && fileExists(outPath):
		meta := t.art.ReadTabularMetadata(outPath)
		inlined := false
		if t.art.ShouldInline(outPath) {
			if rows, err := readCSVRows(outPath); err == nil {
				extra["records"] = rows
				extra["count"] = len(rows)
				extra["columns"] = meta.Columns
				t.art.Cleanup(scratch)
				inlined = true
			}
		}
		if !inlined {
			artifact = fileArtifact(meta)
		}
	case !res.OK():
		t.art.Cleanup(scratch)
	}

	var summary string
	if res.OK() {
		count := 0
		if c, ok := extra["count"].(int); ok {
			count = c
		} else if artifact != nil {
			count = artifact.RowCount
		}
		summary = fmt.Sprintf("Pulled %d %s", count, objectType)
	} else {
		summary = fmt.Sprintf("Pull failed for %s", objectType)
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary:   summary,
		Artifact:  artifact,
		ExtraData: extra,
		Safety:    &envelope.Safety{Impact: envelope.ImpactRead},
	})), nil
}
