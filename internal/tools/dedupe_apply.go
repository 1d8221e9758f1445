package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// DedupeApplyTool handles hubspot.dedupe.apply: executing a merge plan
// produced by hubspot.dedupe.plan.
//
// Because the plan is a concrete file on disk, the two-phase gate is
// stricter than upsert's: before executing, the hash is recomputed from
// the file's current content and must match the presented plan_hash.
// A plan edited between preview and apply is rejected without invoking
// the subprocess.
type DedupeApplyTool struct {
	run Runner
}

// NewDedupeApplyTool creates a DedupeApplyTool with the given runner.
func NewDedupeApplyTool(run Runner) *DedupeApplyTool {
	return &DedupeApplyTool{run: run}
}

// Definition returns the MCP tool definition for registration.
func (t *DedupeApplyTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.dedupe.apply",
		mcp.WithDescription(
			"[MERGE] Execute a merge plan from hubspot.dedupe.plan. Two-phase "+
				"safety: requires the plan_hash from plan generation, and verifies "+
				"the plan file hasn't changed since the hash was computed. "+
				"Requires: HubSpot Admin license or active trial.",
		),
		mcp.WithString("plan_file",
			mcp.Required(),
			mcp.Description("Path to merge plan JSON (from hubspot.dedupe.plan)."),
		),
		mcp.WithBoolean("apply",
			mcp.Description("Execute the merges (default false = dry-run review)."),
			mcp.DefaultBool(false),
		),
		mcp.WithString("plan_hash",
			mcp.Description("Required when apply=true. Must match the plan generation hash."),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Override timeout (default 900s / 15 min)."),
		),
	)
}

// Handle processes the hubspot.dedupe.apply tool call.
func (t *DedupeApplyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	planFile := req.GetString("plan_file", "")
	if planFile == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"'plan_file' is required",
			&envelope.Safety{Impact: envelope.ImpactMerge},
		)), nil
	}

	apply := req.GetBool("apply", false)
	planHash := req.GetString("plan_hash", "")
	rejectSafety := &envelope.Safety{RequiresApply: true, Impact: envelope.ImpactMerge}

	if apply && planHash == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"apply=true requires plan_hash from the merge plan generation. "+
				"Use the plan_hash from hubspot.dedupe.plan output.",
			rejectSafety,
		)), nil
	}

	// Verify the presented hash against the plan file's current content.
	if apply && fileExists(planFile) {
		actualHash, err := envelope.HashPlanFile(planFile)
		if err != nil {
			return mcp.NewToolResultText(envelope.ErrorEnvelope(
				"Cannot read/verify plan file: "+err.Error(),
				rejectSafety,
			)), nil
		}
		if actualHash != planHash {
			return mcp.NewToolResultText(envelope.ErrorEnvelope(
				fmt.Sprintf("plan_hash mismatch: expected %s, but plan file hashes to %s. "+
					"The plan may have changed since dry-run. Re-run hubspot.dedupe.plan.",
					planHash, actualHash),
				rejectSafety,
			)), nil
		}
	}

	args := []string{"hubspot", "merge-apply-plan", planFile, "--json-summary"}
	if apply {
		args = append(args, "--apply")
	}

	res := t.run.Run(ctx, args, runner.Options{
		Tool:    "dedupe.apply",
		Timeout: timeoutOverride(req.GetInt("timeout_seconds", 0)),
	})

	isDryRun := !apply

	// A dry-run review hands the hash forward for the execute call.
	reviewHash := ""
	if isDryRun && res.OK() && fileExists(planFile) {
		reviewHash, _ = envelope.HashPlanFile(planFile)
	}

	var summary string
	switch {
	case res.OK() && isDryRun:
		summary = "Dry-run: Merge apply"
	case res.OK():
		summary = "Merge apply"
	default:
		summary = "Merge apply failed"
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary: summary,
		Safety: &envelope.Safety{
			DryRun:        isDryRun,
			RequiresApply: isDryRun,
			Impact:        envelope.ImpactMerge,
			PlanHash:      reviewHash,
		},
	})), nil
}
