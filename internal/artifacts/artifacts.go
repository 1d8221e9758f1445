// Package artifacts manages the files tools leave behind.
//
// Every tool invocation that produces output gets its own scratch
// directory under the configured base dir. The Manager decides whether a
// produced file is small enough to inline into the response or should be
// handed back as a reference, extracts lightweight metadata, and removes
// the scratch directory afterwards unless keep-files mode is on.
//
// Metadata extraction fails soft on purpose: a file that cannot be
// stat'ed reports size 0, an unreadable CSV reports no columns and zero
// rows. The subprocess result already decided whether the call succeeded;
// metadata problems must never turn a success into a hard error.
package artifacts

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/g-gremlin/hubspot-mcp/internal/config"
)

// MaxInlineBytes is the inline threshold: files at or below this size
// are embedded directly in the response, larger ones become artifact
// references. 64 KiB keeps small payloads round-trip free without
// bloating responses for bulk extractions.
const MaxInlineBytes = 64 * 1024

// Artifact describes a file produced by a tool invocation. Encoding is
// sparse: zero-valued fields are omitted from the serialized form.
type Artifact struct {
	Kind      string   `json:"type,omitempty"`
	Path      string   `json:"path,omitempty"`
	RowCount  int      `json:"row_count,omitempty"`
	Columns   []string `json:"columns,omitempty"`
	SizeBytes int64    `json:"size_bytes,omitempty"`
	Mime      string   `json:"mime,omitempty"`
}

// Metadata is what the Manager knows about a produced file. Columns and
// RowCount are only populated by ReadTabularMetadata.
type Metadata struct {
	Path      string
	SizeBytes int64
	Mime      string
	Columns   []string
	RowCount  int
}

// mimeByExt maps known output extensions to mime types. Anything else
// is reported as a generic octet stream.
var mimeByExt = map[string]string{
	".csv":  "text/csv",
	".json": "application/json",
	".txt":  "text/plain",
}

// Manager owns the scratch-directory lifecycle. It is safe for
// concurrent use: all fields are set at construction and never mutated.
type Manager struct {
	baseDir string
	keep    bool
	log     zerolog.Logger
}

// NewManager builds a Manager from the resolved config.
func NewManager(cfg *config.Config, log zerolog.Logger) *Manager {
	return &Manager{baseDir: cfg.ArtifactDir, keep: cfg.KeepFiles, log: log}
}

// NewScratchDir allocates a fresh directory for one tool invocation,
// creating the base directory as needed. The name is a random 12-hex
// suffix, so concurrent calls never collide.
func (m *Manager) NewScratchDir() (string, error) {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	dir := filepath.Join(m.baseDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating scratch directory %s: %w", dir, err)
	}
	return dir, nil
}

// ShouldInline reports whether a file is small enough to embed in the
// response. A file that cannot be stat'ed is treated as inlineable so
// the caller is not stranded with a dangling reference.
func (m *Manager) ShouldInline(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	return info.Size() <= MaxInlineBytes
}

// FileMetadata returns path, size and mime for a produced file.
// Stat failure reports size 0 rather than an error.
func (m *Manager) FileMetadata(path string) Metadata {
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	mime, ok := mimeByExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mime = "application/octet-stream"
	}

	return Metadata{Path: path, SizeBytes: size, Mime: mime}
}

// ReadTabularMetadata extends FileMetadata with the CSV header columns
// and the count of data rows. Any read failure reports no columns and
// zero rows.
func (m *Manager) ReadTabularMetadata(path string) Metadata {
	meta := m.FileMetadata(path)

	f, err := os.Open(path)
	if err != nil {
		return meta
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		return meta
	}
	var columns []string
	for _, c := range strings.Split(strings.TrimSpace(sc.Text()), ",") {
		if c = strings.TrimSpace(c); c != "" {
			columns = append(columns, c)
		}
	}

	rows := 0
	for sc.Scan() {
		rows++
	}
	if sc.Err() != nil {
		return meta
	}

	meta.Columns = columns
	meta.RowCount = rows
	return meta
}

// Cleanup removes a scratch directory and everything in it. Best-effort:
// removal errors are logged and swallowed. Under keep-files mode this is
// a no-op so operators can inspect intermediate output.
func (m *Manager) Cleanup(dir string) {
	if m.keep {
		m.log.Debug().Str("dir", dir).Msg("keep-files set, leaving scratch dir")
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		m.log.Debug().Err(err).Str("dir", dir).Msg("scratch cleanup failed")
	}
}
