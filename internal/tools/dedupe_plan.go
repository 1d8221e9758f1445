package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/g-gremlin/hubspot-mcp/internal/artifacts"
	"github.com/g-gremlin/hubspot-mcp/internal/envelope"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// DedupePlanTool handles hubspot.dedupe.plan: scans for duplicate
// records and produces a merge plan. The plan hash it returns is what a
// later hubspot.dedupe.apply call must present to execute the merges.
type DedupePlanTool struct {
	run Runner
	art *artifacts.Manager
}

// NewDedupePlanTool creates a DedupePlanTool.
func NewDedupePlanTool(run Runner, art *artifacts.Manager) *DedupePlanTool {
	return &DedupePlanTool{run: run, art: art}
}

// Definition returns the MCP tool definition for registration.
func (t *DedupePlanTool) Definition() mcp.Tool {
	return mcp.NewTool("hubspot.dedupe.plan",
		mcp.WithDescription(
			"[ANALYZE] Scan HubSpot for duplicates and generate a merge plan. "+
				"Groups records by key_column and identifies duplicates. Returns a "+
				"merge plan with a plan_hash — pass this to hubspot.dedupe.apply "+
				"to execute. Uses auto-windowing to break the 10k ceiling.",
		),
		mcp.WithString("object_type",
			mcp.Required(),
			mcp.Description("CRM object type (e.g. \"contacts\", \"companies\")."),
		),
		mcp.WithString("key_column",
			mcp.Required(),
			mcp.Description("Property to group duplicates by (e.g. \"email\", \"domain\")."),
		),
		mcp.WithString("keep",
			mcp.Description("Primary record strategy: \"oldest-created\" | \"newest-activity\" | \"first\"."),
			mcp.DefaultString("oldest-created"),
			mcp.Enum("oldest-created", "newest-activity", "first"),
		),
		mcp.WithArray("where",
			mcp.Description("Filter clauses in property=value form."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max records to scan (0 = unlimited with auto-window)."),
			mcp.DefaultNumber(1000),
		),
		mcp.WithBoolean("auto_window",
			mcp.Description("Enable date-range windowing past 10k (default true)."),
			mcp.DefaultBool(true),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Override timeout (default 900s / 15 min)."),
		),
	)
}

// Handle processes the hubspot.dedupe.plan tool call.
func (t *DedupePlanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectType := req.GetString("object_type", "")
	keyColumn := req.GetString("key_column", "")
	if objectType == "" || keyColumn == "" {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"'object_type' and 'key_column' are required",
			&envelope.Safety{Impact: envelope.ImpactAnalyze},
		)), nil
	}

	scratch, err := t.art.NewScratchDir()
	if err != nil {
		return mcp.NewToolResultText(envelope.ErrorEnvelope(
			"cannot allocate scratch directory: "+err.Error(),
			&envelope.Safety{Impact: envelope.ImpactAnalyze},
		)), nil
	}
	planPath := filepath.Join(scratch, "merge_plan.json")

	args := []string{
		"hubspot", "merge-plan", objectType,
		"--key-column", keyColumn,
		"--keep", req.GetString("keep", "oldest-created"),
		"--limit", strconv.Itoa(req.GetInt("limit", 1000)),
		"--out", planPath,
		"--json-summary",
	}
	for _, clause := range req.GetStringSlice("where", nil) {
		args = append(args, "--where", clause)
	}
	if req.GetBool("auto_window", true) {
		args = append(args, "--auto-window-on-cap")
	} else {
		args = append(args, "--no-auto-window-on-cap")
	}

	res := t.run.Run(ctx, args, runner.Options{
		Tool:    "dedupe.plan",
		Timeout: timeoutOverride(req.GetInt("timeout_seconds", 0)),
	})

	extra := map[string]any{}
	var artifact *artifacts.Artifact
	planHash := ""

	switch {
	case res.OK() && fileExists(planPath):
		planData, err := readPlanFile(planPath)
		if err != nil {
			extra["plan_path"] = planPath
			break
		}
		planHash, err = envelope.ComputePlanHash(planData)
		if err != nil {
			extra["plan_path"] = planPath
			break
		}

		if t.art.ShouldInline(planPath) {
			extra["plan"] = planData
			extra["plan_hash"] = planHash
			var groups []any
			if pm, ok := planData.(map[string]any); ok {
				groups, _ = pm["groups"].([]any)
			}
			totalMerges := 0
			for _, g := range groups {
				if gm, ok := g.(map[string]any); ok {
					if secs, ok := gm["secondaries"].([]any); ok {
						totalMerges += len(secs)
					}
				}
			}
			extra["duplicate_groups"] = len(groups)
			extra["total_merges"] = totalMerges
			t.art.Cleanup(scratch)
		} else {
			meta := t.art.FileMetadata(planPath)
			artifact = &artifacts.Artifact{
				Kind:      "file",
				Path:      planPath,
				SizeBytes: meta.SizeBytes,
				Mime:      "application/json",
			}
			extra["plan_hash"] = planHash
		}
	case !res.OK():
		t.art.Cleanup(scratch)
	}

	var summary string
	if res.OK() {
		summary = fmt.Sprintf("Found %v duplicate groups, %v merges planned",
			orUnknown(extra["duplicate_groups"]), orUnknown(extra["total_merges"]))
	} else {
		summary = fmt.Sprintf("Dedupe plan failed for %s", objectType)
	}

	return mcp.NewToolResultText(envelope.Build(res, envelope.Options{
		Summary:   summary,
		Artifact:  artifact,
		ExtraData: extra,
		Safety: &envelope.Safety{
			Impact:   envelope.ImpactAnalyze,
			PlanHash: planHash,
		},
	})), nil
}

// readPlanFile loads a plan JSON document as a generic value.
func readPlanFile(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var plan any
	if err := json.Unmarshal(raw, &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// orUnknown substitutes "?" for stats that could not be extracted.
func orUnknown(v any) any {
	if v == nil {
		return "?"
	}
	return v
}
