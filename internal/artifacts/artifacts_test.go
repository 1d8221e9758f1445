package artifacts

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestManager(t *testing.T, keep bool) *Manager {
	t.Helper()
	return &Manager{baseDir: t.TempDir(), keep: keep, log: zerolog.Nop()}
}

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestNewScratchDir(t *testing.T) {
	m := newTestManager(t, false)

	dir, err := m.NewScratchDir()
	if err != nil {
		t.Fatalf("NewScratchDir: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("scratch dir not created: %v", err)
	}

	name := filepath.Base(dir)
	if len(name) != 12 {
		t.Errorf("scratch name %q, want 12 hex chars", name)
	}
	for _, c := range name {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Errorf("scratch name %q contains non-hex %q", name, c)
		}
	}
}

func TestNewScratchDir_Unique(t *testing.T) {
	m := newTestManager(t, false)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		dir, err := m.NewScratchDir()
		if err != nil {
			t.Fatalf("NewScratchDir: %v", err)
		}
		if seen[dir] {
			t.Fatalf("duplicate scratch dir %s", dir)
		}
		seen[dir] = true
	}
}

func TestShouldInline_Boundary(t *testing.T) {
	m := newTestManager(t, false)
	dir := t.TempDir()

	atLimit := writeFile(t, dir, "at.csv", bytes.Repeat([]byte("x"), MaxInlineBytes))
	if !m.ShouldInline(atLimit) {
		t.Error("file at the 64 KiB limit should inline")
	}

	overLimit := writeFile(t, dir, "over.csv", bytes.Repeat([]byte("x"), MaxInlineBytes+1))
	if m.ShouldInline(overLimit) {
		t.Error("file one byte over the limit should not inline")
	}
}

func TestShouldInline_MissingFile(t *testing.T) {
	m := newTestManager(t, false)
	if !m.ShouldInline(filepath.Join(t.TempDir(), "absent.csv")) {
		t.Error("unstatable file should be treated as inlineable")
	}
}

func TestFileMetadata(t *testing.T) {
	m := newTestManager(t, false)
	dir := t.TempDir()
	path := writeFile(t, dir, "out.csv", []byte("hello"))

	meta := m.FileMetadata(path)
	if meta.Path != path {
		t.Errorf("path = %q", meta.Path)
	}
	if meta.SizeBytes != 5 {
		t.Errorf("size = %d, want 5", meta.SizeBytes)
	}
	if meta.Mime != "text/csv" {
		t.Errorf("mime = %q", meta.Mime)
	}
}

func TestFileMetadata_MimeByExtension(t *testing.T) {
	m := newTestManager(t, false)
	tests := []struct {
		path string
		want string
	}{
		{"a.csv", "text/csv"},
		{"a.CSV", "text/csv"},
		{"a.json", "application/json"},
		{"a.txt", "text/plain"},
		{"a.parquet", "application/octet-stream"},
		{"noext", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := m.FileMetadata(tt.path).Mime; got != tt.want {
			t.Errorf("FileMetadata(%q).Mime = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestFileMetadata_MissingFile(t *testing.T) {
	m := newTestManager(t, false)
	meta := m.FileMetadata(filepath.Join(t.TempDir(), "absent.csv"))
	if meta.SizeBytes != 0 {
		t.Errorf("size = %d, want 0 for unstatable file", meta.SizeBytes)
	}
}

func TestReadTabularMetadata(t *testing.T) {
	m := newTestManager(t, false)
	dir := t.TempDir()
	path := writeFile(t, dir, "contacts.csv", []byte("email,firstname,lastname\na@b.com,Ann,Bee\nc@d.com,Cee,Dee\n"))

	meta := m.ReadTabularMetadata(path)
	if !reflect.DeepEqual(meta.Columns, []string{"email", "firstname", "lastname"}) {
		t.Errorf("columns = %v", meta.Columns)
	}
	if meta.RowCount != 2 {
		t.Errorf("row count = %d, want 2", meta.RowCount)
	}
}

func TestReadTabularMetadata_HeaderOnly(t *testing.T) {
	m := newTestManager(t, false)
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.csv", []byte("email,name\n"))

	meta := m.ReadTabularMetadata(path)
	if !reflect.DeepEqual(meta.Columns, []string{"email", "name"}) {
		t.Errorf("columns = %v", meta.Columns)
	}
	if meta.RowCount != 0 {
		t.Errorf("row count = %d, want 0", meta.RowCount)
	}
}

func TestReadTabularMetadata_MissingFile(t *testing.T) {
	m := newTestManager(t, false)
	meta := m.ReadTabularMetadata(filepath.Join(t.TempDir(), "absent.csv"))
	if meta.Columns != nil || meta.RowCount != 0 {
		t.Errorf("meta = %+v, want no columns and zero rows", meta)
	}
}

func TestCleanup_RemovesDir(t *testing.T) {
	m := newTestManager(t, false)
	dir, err := m.NewScratchDir()
	if err != nil {
		t.Fatalf("NewScratchDir: %v", err)
	}
	writeFile(t, dir, "out.csv", []byte("data"))

	m.Cleanup(dir)

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("scratch dir still present after Cleanup: %v", err)
	}
}

func TestCleanup_KeepFiles(t *testing.T) {
	m := newTestManager(t, true)
	dir, err := m.NewScratchDir()
	if err != nil {
		t.Fatalf("NewScratchDir: %v", err)
	}

	m.Cleanup(dir)

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("keep-files mode should leave the scratch dir: %v", err)
	}
}

func TestArtifactJSON_OmitsZeroFields(t *testing.T) {
	a := Artifact{Kind: "file", Path: "/tmp/x.csv"}

	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, absent := range []string{"row_count", "columns", "size_bytes", "mime"} {
		if strings.Contains(s, absent) {
			t.Errorf("serialized artifact should omit %s: %s", absent, s)
		}
	}
}
