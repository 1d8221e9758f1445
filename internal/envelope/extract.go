package envelope

import (
	"encoding/json"
	"regexp"
	"strings"
)

// AgenticSchemaTag is the structured-result marker the CLI embeds in
// stdout when invoked with --json-summary.
const AgenticSchemaTag = "AgenticResult/v1"

// markerPattern matches a flat JSON object carrying the AgenticResult
// schema tag. Nested result payloads don't match here; those are caught
// by the last-object scan below.
var markerPattern = regexp.MustCompile(`(?s)\{[^{}]*"\$schema"\s*:\s*"` + AgenticSchemaTag + `"[^{}]*\}`)

// extractAgenticResult finds the AgenticResult payload in stdout, if
// any. Two strategies, in order: the marker regex, then parsing from the
// last line that opens a JSON object to the end of stdout.
func extractAgenticResult(stdout string) map[string]any {
	if m := markerObject(stdout); m != nil {
		return m
	}
	return lastJSONObject(stdout)
}

// markerObject tries each regex candidate until one parses.
func markerObject(stdout string) map[string]any {
	for _, candidate := range markerPattern.FindAllString(stdout, -1) {
		var m map[string]any
		if err := json.Unmarshal([]byte(candidate), &m); err == nil {
			return m
		}
	}
	return nil
}

// lastJSONObject parses from the last stdout line that starts with "{"
// through the end. The CLI prints the summary object last, after any
// progress output.
func lastJSONObject(stdout string) map[string]any {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "{") {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(strings.Join(lines[i:], "\n")), &m); err == nil {
			return m
		}
		return nil
	}
	return nil
}

// extractJSON parses stdout as plain JSON, for --json commands. First
// the whole trimmed output, then from the first line that opens a JSON
// value (skipping any non-JSON prefix like progress messages).
func extractJSON(stdout string) (any, bool) {
	trimmed := strings.TrimSpace(stdout)

	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil && v != nil {
		return v, true
	}

	lines := strings.Split(trimmed, "\n")
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if !strings.HasPrefix(t, "{") && !strings.HasPrefix(t, "[") {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(strings.Join(lines[i:], "\n")), &v); err == nil && v != nil {
			return v, true
		}
	}
	return nil, false
}
