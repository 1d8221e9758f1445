// Package tools implements the MCP tool handlers that wrap g-gremlin.
//
// Three tiers: read (no side effects), analyze (read-only, produces
// plans and snapshots), and mutate (two-phase apply). Each tool is a
// struct receiving its dependencies at construction and exposing
// Definition/Handle for registration.
//
// Handlers never surface operational failures as Go errors: once past
// argument decoding, every outcome — subprocess failure, timeout,
// rejected mutation — is rendered as an ok:false envelope so the caller
// always receives a parseable response.
package tools

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"time"

	"github.com/g-gremlin/hubspot-mcp/internal/artifacts"
	"github.com/g-gremlin/hubspot-mcp/internal/runner"
)

// Runner is the subset of the process runner tools depend on. Tests
// substitute a recording fake.
type Runner interface {
	Run(ctx context.Context, args []string, opts runner.Options) runner.Result
}

// timeoutOverride converts the optional timeout_seconds argument into a
// runner override. Zero or negative means "use the class default".
func timeoutOverride(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// fileExists reports whether path names an existing file or directory.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// fileArtifact builds an artifact reference from extracted metadata.
func fileArtifact(meta artifacts.Metadata) *artifacts.Artifact {
	return &artifacts.Artifact{
		Kind:      "file",
		Path:      meta.Path,
		RowCount:  meta.RowCount,
		Columns:   meta.Columns,
		SizeBytes: meta.SizeBytes,
		Mime:      meta.Mime,
	}
}

// metadataMap renders file metadata as envelope data. Used for
// multi-file outputs where a single artifact block doesn't fit.
func metadataMap(meta artifacts.Metadata) map[string]any {
	m := map[string]any{
		"path":       meta.Path,
		"size_bytes": meta.SizeBytes,
		"mime":       meta.Mime,
	}
	if len(meta.Columns) > 0 {
		m["columns"] = meta.Columns
	}
	if meta.RowCount > 0 {
		m["row_count"] = meta.RowCount
	}
	return m
}

// readCSVRows loads a CSV file as a slice of column→value records, for
// inlining small pull results directly into the response.
func readCSVRows(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return []map[string]any{}, nil
		}
		return nil, err
	}

	rows := []map[string]any{}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
