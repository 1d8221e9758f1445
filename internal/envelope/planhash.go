package envelope

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// HashPrefix is prepended to every plan hash.
const HashPrefix = "sha256:"

// ComputePlanHash returns the canonical content hash of a plan-like
// value: the plan is serialized as compact JSON with sorted keys, then
// digested with SHA-256. The hash is independent of map insertion order
// but sensitive to every value, including nested structure.
func ComputePlanHash(plan any) (string, error) {
	canonical, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("encoding plan: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return HashPrefix + hex.EncodeToString(sum[:]), nil
}

// HashPlanFile recomputes the plan hash from a plan file's current
// on-disk content. Used to verify that a plan has not changed between
// preview and apply.
func HashPlanFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading plan file: %w", err)
	}
	var plan any
	if err := json.Unmarshal(raw, &plan); err != nil {
		return "", fmt.Errorf("parsing plan file %s: %w", path, err)
	}
	return ComputePlanHash(plan)
}
