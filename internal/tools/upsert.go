package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// UpsertTool handles hubspot.objects.upsert: bulk record upserts from
// CSV, dry-run by default.
//
// Two-phase apply: a preview call (apply=false) returns a plan hash in
// the safety block; the execute call must set apply=true and present
// that hash. apply=true without a hash is rejected before any
// subprocess is invoked.
type UpsertTool struct {
	run Runner
}

// NewUpsertTool creates an UpsertTool with the given runner.
func NewUpsertTool(run Runner) *UpsertTool {
	return &UpsertTool{run: run}
}

// Definition returns the MCP tool definition for registration.
func (t *UpsertTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.objects.upsert",
		mcp.WithDescription(
			"[WRITE] Bulk upsert HubSpot CRM records from CSV. Dry-run by "+
				"default. Two-phase safety: (1) call with apply=false to preview "+
				"and get a plan_hash, then (2) call with apply=true and the "+
				"plan_hash to execute. Requires: HubSpot Admin license or active trial.",
		),
		mcp.WithString("object_type",
			mcp.Required(),
			mcp.Description("CRM object type (e.g. \"contacts\", \"companies\")."),
		),
		mcp.WithString("csv_path",
			mcp.Required(),
			mcp.Description("Path to CSV file with records."),
		),
		mcp.WithString("id_column",
			mcp.Required(),
			mcp.Description("Column used for matching (e.g. \"hs_object_id\", \"email\")."),
		),
		mcp.WithBoolean("apply",
			mcp.Description("Execute the upsert (default false = dry-run)."),
			mcp.DefaultBool(false),
		),
		mcp.WithString("plan_hash",
			mcp.Description("Required when apply=true. Must match the dry-run hash."),
		),
		mcp.WithNumber("batch_size",
			mcp.Description("Optional batch size override (max 100)."),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Override timeout (default 900s / 15 min)."),
		),
	)
}

// Handle processes the hubspot.objects.upsert tool call.
func (t *UpsertTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectType := req.GetString("object_type", "")
	csvPath := req.GetString("csv_path", "")
	idColumn := req.GetString("id_column", "")
	if objectType == "" || csvPath == "" || idColumn == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"'object_type', 'csv_path', and 'id_column' are required",
			&envelope.Safety{Impact: envelope.ImpactWrite},
		)), nil
	}

	apply := req.GetBool("apply", false)
	planHash := req.GetString("plan_hash", "")

	if apply && planHash == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"apply=true requires plan_hash from a prior dry-run call. "+
				"Run with apply=false first to get the plan_hash.",
			&envelope.Safety{RequiresApply: true, Impact: envelope.ImpactWrite},
		)), nil
	}

	args := []string{
		"hubspot", "upsert", objectType,
		"--csv", csvPath,
		"--id-column", idColumn,
		"--json-summary",
	}
	if apply {
		args = append(args, "--apply")
	}
	if batchSize := req.GetInt("batch_size", 0); batchSize > 0 {
		args = append(args, "--batch-size", strconv.Itoa(batchSize))
	}

	res := t.run.Run(ctx, args, runner.Options{
		Tool:    "objects.upsert",
		Timeout: timeoutOverride(req.GetInt("timeout_seconds", 0)),
	})

	// The preview has no plan artifact on disk, so the hash binds the
	// preview output itself in a canonical single-key wrapping.
	dryRunHash := ""
	if !apply && res.OK() {
		dryRunHash, _ = envelope.ComputePlanHash(map[string]any{"preview": res.Stdout})
	}

	isDryRun := !apply
	var summary string
	switch {
	case res.OK() && isDryRun:
		summary = fmt.Sprintf("Dry-run: Upsert %s", objectType)
	case res.OK():
		summary = fmt.Sprintf("Upsert %s", objectType)
	default:
		summary = fmt.Sprintf("Upsert failed for %s", objectType)
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary: summary,
		Safety: &envelope.Safety{
			DryRun:        isDryRun,
			RequiresApply: isDryRun,
			Impact:        envelope.ImpactWrite,
			PlanHash:      dryRunHash,
		},
	})), nil
}
