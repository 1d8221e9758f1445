// Package server wires all components and creates the MCP server
// instance.
//
// This is the composition root: it resolves configuration, locates and
// version-gates the g-gremlin CLI, and injects the runner and artifact
// manager into every tool. No business logic lives here — only wiring.
package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/g-gremlin/hubspot-mcp/internal/artifacts"
	"github.com/g-gremlin/hubspot-mcp/internal/config"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
	"github.com/g-gremlin/hubspot-mcp/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools registered.
//
// Startup is strict: a missing g-gremlin executable, an unparseable
// version, or a version below config.MinGremlinVersion is returned as
// an error and the process must not serve.
func New(cfg *config.Config, log zerolog.Logger) (*server.MCPServer, error) {
	run, err := runner.New(log, cfg.Timeouts)
	if err != nil {
		return nil, err
	}

	detected, err := run.CheckVersion(context.Background())
	if err != nil {
		return nil, fmt.Errorf("version gate: %w", err)
	}
	log.Info().
		Str("server", Version).
		Str("g_gremlin", detected).
		Msg("starting gremlin-hubspot-mcp")

	art := artifacts.NewManager(cfg, log)

	s := server.NewMCPServer(
		"gremlin-hubspot",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Tier 1: read & discover ---

	whoami := tools.NewWhoamiTool(run)
	s.AddTool(whoami.Definition(), whoami.Handle)

	doctor := tools.NewDoctorTool(run)
	s.AddTool(doctor.Definition(), doctor.Handle)

	schemaList := tools.NewSchemaListTool(run)
	s.AddTool(schemaList.Definition(), schemaList.Handle)

	schemaGet := tools.NewSchemaGetTool(run)
	s.AddTool(schemaGet.Definition(), schemaGet.Handle)

	propsList := tools.NewPropsListTool(run)
	s.AddTool(propsList.Definition(), propsList.Handle)

	query := tools.NewQueryTool(run)
	s.AddTool(query.Definition(), query.Handle)

	pull := tools.NewPullTool(run, art)
	s.AddTool(pull.Definition(), pull.Handle)

	engagements := tools.NewEngagementsPullTool(run, art)
	s.AddTool(engagements.Definition(), engagements.Handle)

	// --- Tier 2: analyze & plan ---

	dedupePlan := tools.NewDedupePlanTool(run, art)
	s.AddTool(dedupePlan.Definition(), dedupePlan.Handle)

	propsDrift := tools.NewPropsDriftTool(run)
	s.AddTool(propsDrift.Definition(), propsDrift.Handle)

	snapshotCreate := tools.NewSnapshotCreateTool(run, art)
	s.AddTool(snapshotCreate.Definition(), snapshotCreate.Handle)

	snapshotDiff := tools.NewSnapshotDiffTool(run)
	s.AddTool(snapshotDiff.Definition(), snapshotDiff.Handle)

	// --- Tier 3: mutate (two-phase apply) ---

	upsert := tools.NewUpsertTool(run)
	s.AddTool(upsert.Definition(), upsert.Handle)

	dedupeApply := tools.NewDedupeApplyTool(run)
	s.AddTool(dedupeApply.Definition(), dedupeApply.Handle)

	return s, nil
}

// serverInstructions tells the AI how to use the tool tiers safely.
func serverInstructions() string {
	return `You have access to gremlin-hubspot, an MCP server wrapping the
g-gremlin CRM data-management CLI.

## Response shape
Every tool returns one GremlinMCPResponse/v1 JSON envelope:
- ok: whether the underlying command succeeded
- summary: one-line human-readable outcome
- data: the normalized result payload
- artifact: present when output was too large to inline — a file
  reference with path, size, mime, and (for CSVs) columns + row count
- warnings: present only when there are any
- safety: dry_run / requires_apply / impact / plan_hash
- raw: the unprocessed command result, if data is not enough

Never assume a tool call raised an error — failures arrive as ok:false
envelopes with the reason in summary.

## Tool tiers
- READ (whoami, doctor, schema.*, props.list, objects.query,
  objects.pull, engagements.pull): safe, no side effects. Large pulls
  return artifacts; read the referenced file if you need the rows.
- ANALYZE (dedupe.plan, props.drift, snapshot.*): read-only, but
  produces plans and snapshots for later steps.
- MUTATE (objects.upsert, dedupe.apply): irreversible. Dry-run by
  default and gated by a two-phase apply.

## Two-phase apply (MUTATE tools)
1. Call the tool with apply=false (the default). Review the preview.
   The response carries safety.plan_hash.
2. Confirm with the user, then call again with apply=true and the exact
   plan_hash from step 1.
Calls with apply=true and no plan_hash are rejected. If the plan file
changed since the preview, the call is rejected with a hash mismatch —
regenerate the plan, do not retry with the old hash.

## Workflow hints
- Start sessions with hubspot.auth.whoami to verify connectivity.
- Prefer objects.query for small lookups; switch to objects.pull when
  you need more than 10k records or a complete extraction.
- For deduplication: dedupe.plan → review groups → dedupe.apply with
  the plan_hash.`
}
