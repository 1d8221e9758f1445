package envelope

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestComputePlanHash_KnownValue(t *testing.T) {
	// Canonical form of the plan is {"a":1,"b":2}.
	got, err := ComputePlanHash(map[string]any{"b": 2, "a": 1})
	if err != nil {
		t.Fatalf("ComputePlanHash: %v", err)
	}
	want := "sha256:43258cff783fe7036d8a43033f830adfc60ec037382473548ac742b888292777"
	if got != want {
		t.Errorf("hash = %s, want %s", got, want)
	}
}

func TestComputePlanHash_Deterministic(t *testing.T) {
	plan := map[string]any{
		"groups": []any{
			map[string]any{"key": "a@b.com", "primary": "1", "secondaries": []any{"2", "3"}},
		},
	}

	h1, err := ComputePlanHash(plan)
	if err != nil {
		t.Fatalf("ComputePlanHash: %v", err)
	}
	h2, err := ComputePlanHash(plan)
	if err != nil {
		t.Fatalf("ComputePlanHash: %v", err)
	}
	if h1 != h2 {
		t.Errorf("same plan hashed differently: %s vs %s", h1, h2)
	}
	if !strings.HasPrefix(h1, "sha256:") {
		t.Errorf("hash %s missing sha256: prefix", h1)
	}
}

func TestComputePlanHash_ValueSensitive(t *testing.T) {
	h1, _ := ComputePlanHash(map[string]any{"groups": []any{"a"}})
	h2, _ := ComputePlanHash(map[string]any{"groups": []any{"b"}})
	if h1 == h2 {
		t.Error("different plans produced the same hash")
	}
}

func TestComputePlanHash_NestedStructureSensitive(t *testing.T) {
	h1, _ := ComputePlanHash(map[string]any{"g": map[string]any{"secondaries": []any{"2"}}})
	h2, _ := ComputePlanHash(map[string]any{"g": map[string]any{"secondaries": []any{"2", "3"}}})
	if h1 == h2 {
		t.Error("nested change did not change the hash")
	}
}

func TestComputePlanHash_Unencodable(t *testing.T) {
	if _, err := ComputePlanHash(make(chan int)); err == nil {
		t.Error("expected error for unencodable plan")
	}
}

func TestHashPlanFile_MatchesComputed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "merge_plan.json")

	// Key order in the file differs from canonical order on purpose.
	content := `{"groups": [{"secondaries": ["2"], "key": "a@b.com", "primary": "1"}]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing plan file: %v", err)
	}

	got, err := HashPlanFile(path)
	if err != nil {
		t.Fatalf("HashPlanFile: %v", err)
	}
	want := "sha256:1954bcc763a4f63255c7f0ee22ce4d05ad5ced87d08255b998aedcb5ced7ee63"
	if got != want {
		t.Errorf("hash = %s, want %s", got, want)
	}
}

func TestHashPlanFile_Missing(t *testing.T) {
	if _, err := HashPlanFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing plan file")
	}
}

func TestHashPlanFile_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if _, err := HashPlanFile(path); err == nil {
		t.Error("expected error for malformed plan file")
	}
}
