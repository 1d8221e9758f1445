package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/artifacts"
	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// SnapshotCreateTool handles hubspot.snapshot.create: capturing the
// current CRM state (schema, properties, object counts) to a local
// directory for later comparison.
type SnapshotCreateTool struct {
	run Runner
	art *artifacts.Manager
}

// NewSnapshotCreateTool creates a SnapshotCreateTool.
func NewSnapshotCreateTool(run Runner, art *artifacts.Manager) *SnapshotCreateTool {
	return &SnapshotCreateTool{run: run, art: art}
}

// Definition returns the MCP tool definition for registration.
func (t *SnapshotCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.snapshot.create",
		mcp.WithDescription(
			"[READ] Capture a snapshot of the current HubSpot CRM state. Saves "+
				"schema, properties, and object counts. Compare with "+
				"hubspot.snapshot.diff. Requires: HubSpot Admin license or active trial.",
		),
		mcp.WithString("object_types",
			mcp.Description("Comma-separated types to snapshot (omit for all standard types)."),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Override timeout (default 600s / 10 min)."),
		),
	)
}

// Handle processes the hubspot.snapshot.create tool call.
func (t *SnapshotCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scratch, err := t.art.NewScratchDir()
	if err != nil {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"cannot allocate scratch directory: "+err.Error(),
			&envelope.Safety{Impact: envelope.ImpactRead},
		)), nil
	}
	snapshotDir := filepath.Join(scratch, "snapshot")
	if err := os.MkdirAll(snapshotDir, 0o755); err != nil {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"cannot allocate snapshot directory: "+err.Error(),
			&envelope.Safety{Impact: envelope.ImpactRead},
		)), nil
	}

	args := []string{"hubspot", "snapshot", "--out-dir", snapshotDir, "--json"}
	if objectTypes := req.GetString("object_types", ""); objectTypes != "" {
		args = append(args, "--objects", objectTypes)
	}

	res := t.run.Run(ctx, args, runner.Options{
		Tool:    "snapshot.create",
		Timeout: timeoutOverride(req.GetInt("timeout_seconds", 0)),
	})

	extra := map[string]any{}
	fileCount := 0
	if res.OK() {
		fileCount = countFiles(snapshotDir)
		extra["snapshot_dir"] = snapshotDir
		extra["file_count"] = fileCount
	} else {
		t.art.Cleanup(scratch)
	}

	summary := fmt.Sprintf("Snapshot captured (%d files)", fileCount)
	if !res.OK() {
		summary = "Snapshot failed"
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary:   summary,
		ExtraData: extra,
		Safety:    &envelope.Safety{Impact: envelope.ImpactRead},
	})), nil
}

// countFiles counts regular files under dir, recursively.
func countFiles(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && d.Type().IsRegular() {
			count++
		}
		return nil
	})
	return count
}

// SnapshotDiffTool handles hubspot.snapshot.diff: comparing two
// previously captured snapshots.
type SnapshotDiffTool struct {
	run Runner
}

// NewSnapshotDiffTool creates a SnapshotDiffTool with the given runner.
func NewSnapshotDiffTool(run Runner) *SnapshotDiffTool {
	return &SnapshotDiffTool{run: run}
}

// Definition returns the MCP tool definition for registration.
func (t *SnapshotDiffTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.snapshot.diff",
		mcp.WithDescription(
			"[ANALYZE] Compare two HubSpot CRM snapshots and show changes. "+
				"Requires: HubSpot Admin license or active trial.",
		),
		mcp.WithString("snapshot_a",
			mcp.Required(),
			mcp.Description("Path to the first (older) snapshot directory."),
		),
		mcp.WithString("snapshot_b",
			mcp.Required(),
			mcp.Description("Path to the second (newer) snapshot directory."),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Override timeout (default 600s / 10 min)."),
		),
	)
}

// Handle processes the hubspot.snapshot.diff tool call.
func (t *SnapshotDiffTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snapshotA := req.GetString("snapshot_a", "")
	snapshotB := req.GetString("snapshot_b", "")
	if snapshotA == "" || snapshotB == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"'snapshot_a' and 'snapshot_b' are required",
			&envelope.Safety{Impact: envelope.ImpactAnalyze},
		)), nil
	}

	res := t.run.Run(ctx,
		[]string{"hubspot", "compare-snapshots", snapshotA, snapshotB, "--json"},
		runner.Options{
			Tool:    "snapshot.diff",
			Timeout: timeoutOverride(req.GetInt("timeout_seconds", 0)),
		})

	summary := "Snapshot comparison"
	if !res.OK() {
		summary = "Snapshot diff failed"
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary: summary,
		Safety:  &envelope.Safety{Impact: envelope.ImpactAnalyze},
	})), nil
}
