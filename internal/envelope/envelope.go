// Package envelope normalizes heterogeneous g-gremlin output into the
// single GremlinMCPResponse/v1 response shape every tool returns.
//
// The CLI's stdout may carry an embedded AgenticResult marker object,
// plain JSON, or free text. Build runs an ordered chain of parsing
// strategies (see extract.go) to produce one canonical data mapping,
// merges warnings, attaches artifact/safety/meta blocks, and serializes
// the whole thing. The raw block always carries the literal exit code,
// a stderr snippet, and the full marker payload when one was found, so
// callers are never fully blocked by the normalization heuristics.
package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/g-gremlin/hubspot-mcp/internal/artifacts"
	"github.com/g-gremlin/hubspot-mcp/internal/config"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// SchemaTag identifies the response shape.
const SchemaTag = "GremlinMCPResponse/v1"

// Impact levels for Safety.Impact.
const (
	ImpactRead    = "read"
	ImpactAnalyze = "analyze"
	ImpactWrite   = "write"
	ImpactMerge   = "merge"
	ImpactSchema  = "schema"
)

// Safety is the per-call safety block. Every envelope carries exactly
// one; tools that don't override it get read-impact defaults.
type Safety struct {
	DryRun        bool   `json:"dry_run"`
	RequiresApply bool   `json:"requires_apply"`
	Impact        string `json:"impact"`
	PlanHash      string `json:"plan_hash,omitempty"`
}

// Warning is a structured diagnostic surfaced alongside a result.
type Warning struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Options are the caller-supplied parts of an envelope.
type Options struct {
	// Summary overrides the derived one-line summary.
	Summary string
	// Artifact references a produced file, when output was too large
	// to inline.
	Artifact *artifacts.Artifact
	// Safety defaults to read impact when nil.
	Safety *Safety
	// ExtraData is merged into the normalized data mapping; caller
	// keys win on conflict.
	ExtraData map[string]any
	// ExtraWarnings are appended after any warnings extracted from
	// the marker object.
	ExtraWarnings []Warning
}

// document is the wire shape. Field order here is the field order on
// the wire.
type document struct {
	Schema   string              `json:"$schema"`
	OK       bool                `json:"ok"`
	Summary  string              `json:"summary"`
	Data     map[string]any      `json:"data"`
	Artifact *artifacts.Artifact `json:"artifact,omitempty"`
	Warnings []map[string]any    `json:"warnings,omitempty"`
	Safety   Safety              `json:"safety"`
	Raw      rawBlock            `json:"raw"`
	Meta     metaBlock           `json:"meta"`
}

type rawBlock struct {
	AgenticResult map[string]any `json:"agentic_result"`
	ExitCode      int            `json:"exit_code"`
	Stderr        string         `json:"stderr"`
}

type metaBlock struct {
	RequiresGremlin string `json:"requires_g_gremlin"`
	Timestamp       string `json:"timestamp"`
}

// Build turns a runner.Result into a serialized GremlinMCPResponse/v1.
// ok mirrors the subprocess exit code and nothing else.
func Build(res runner.Result, opts Options) string {
	agentic := extractAgenticResult(res.Stdout)

	data, implicit := normalizeData(res, agentic)
	for k, v := range opts.ExtraData {
		data[k] = v
	}

	summary := opts.Summary
	if summary == "" {
		summary = deriveSummary(res, agentic)
	}
	if !res.OK() && !strings.HasPrefix(summary, "Error") {
		if snip := truncate(strings.TrimSpace(res.Stderr), 200); snip != "" {
			summary = summary + " — " + snip
		}
	}

	var warnings []map[string]any
	warnings = append(warnings, implicit...)
	for _, w := range opts.ExtraWarnings {
		if w.Severity == "" {
			w.Severity = "warning"
		}
		warnings = append(warnings, map[string]any{
			"code": w.Code, "message": w.Message, "severity": w.Severity,
		})
	}

	doc := document{
		Schema:   SchemaTag,
		OK:       res.OK(),
		Summary:  summary,
		Data:     data,
		Artifact: opts.Artifact,
		Warnings: warnings,
		Safety:   effectiveSafety(opts.Safety),
		Raw: rawBlock{
			AgenticResult: agentic,
			ExitCode:      res.ExitCode,
			Stderr:        truncate(res.Stderr, 500),
		},
		Meta: newMeta(),
	}

	return render(doc)
}

// ErrorEnvelope produces the same shape without a subprocess result, for
// precondition failures detected before anything was invoked. ok is
// always false and the exit code is the -1 sentinel.
func ErrorEnvelope(summary string, safety *Safety) string {
	doc := document{
		Schema:  SchemaTag,
		OK:      false,
		Summary: summary,
		Data:    map[string]any{},
		Safety:  effectiveSafety(safety),
		Raw:     rawBlock{ExitCode: -1},
		Meta:    newMeta(),
	}
	return render(doc)
}

// normalizeData derives the data mapping and any implicit warnings.
// Order of attempts: marker object result, whole-stdout JSON, text
// fallback. Non-mapping JSON values are wrapped as {items: value}.
func normalizeData(res runner.Result, agentic map[string]any) (map[string]any, []map[string]any) {
	if agentic != nil {
		return resultMapping(agentic), implicitWarnings(agentic)
	}
	if v, ok := extractJSON(res.Stdout); ok {
		if m, isMap := v.(map[string]any); isMap {
			data := make(map[string]any, len(m))
			for k, val := range m {
				data[k] = val
			}
			return data, nil
		}
		return map[string]any{"items": v}, nil
	}
	return map[string]any{"text": res.Stdout}, nil
}

// resultMapping copies the marker's result field into a fresh mapping so
// extra-data merging never mutates the raw payload.
func resultMapping(agentic map[string]any) map[string]any {
	switch r := agentic["result"].(type) {
	case map[string]any:
		data := make(map[string]any, len(r))
		for k, v := range r {
			data[k] = v
		}
		return data
	case nil:
		return map[string]any{}
	default:
		return map[string]any{"items": r}
	}
}

// implicitWarnings pulls mapping-shaped entries out of the marker's
// warnings field, dropping anything malformed.
func implicitWarnings(agentic map[string]any) []map[string]any {
	raw, _ := agentic["warnings"].([]any)
	var out []map[string]any
	for _, w := range raw {
		if m, ok := w.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// deriveSummary composes a summary when the caller supplied none.
func deriveSummary(res runner.Result, agentic map[string]any) string {
	if agentic != nil {
		status, _ := agentic["status"].(string)
		command, _ := agentic["command"].(string)
		if command != "" {
			return command + ": " + status
		}
		return status
	}
	if res.OK() {
		return "Command completed successfully"
	}
	return fmt.Sprintf("Command failed (exit %d)", res.ExitCode)
}

func effectiveSafety(s *Safety) Safety {
	if s == nil {
		return Safety{Impact: ImpactRead}
	}
	return *s
}

func newMeta() metaBlock {
	return metaBlock{
		RequiresGremlin: ">=" + config.MinGremlinVersion,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// render serializes the document. A marshal failure here means a handler
// put something non-JSON-encodable in extra data; report that instead of
// panicking past the tool boundary.
func render(doc document) string {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fallback := document{
			Schema:  SchemaTag,
			Summary: "Error encoding response: " + err.Error(),
			Data:    map[string]any{},
			Safety:  doc.Safety,
			Raw:     rawBlock{ExitCode: -1},
			Meta:    newMeta(),
		}
		b, _ = json.MarshalIndent(fallback, "", "  ")
	}
	return string(b)
}
