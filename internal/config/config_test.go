package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the config file lookup at a nonexistent path and blanks
// the env overrides so each test starts from pure defaults.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.toml"))
	t.Setenv(EnvArtifactDir, "")
	t.Setenv(EnvKeepFiles, "")
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ArtifactDir == "" {
		t.Error("ArtifactDir should have a default")
	}
	if filepath.Base(cfg.ArtifactDir) != "mcp_tmp" && filepath.Base(cfg.ArtifactDir) != "g_gremlin_mcp" {
		t.Errorf("ArtifactDir = %q", cfg.ArtifactDir)
	}
	if cfg.KeepFiles {
		t.Error("KeepFiles should default to false")
	}
	if len(cfg.Timeouts) != 0 {
		t.Errorf("Timeouts = %v, want empty", cfg.Timeouts)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	path := writeConfigFile(t, `
artifact_dir = "/data/scratch"
keep_files = true

[timeouts]
"objects.pull" = 1800
"whoami" = 5
`)
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ArtifactDir != "/data/scratch" {
		t.Errorf("ArtifactDir = %q", cfg.ArtifactDir)
	}
	if !cfg.KeepFiles {
		t.Error("KeepFiles should be true from config file")
	}
	if cfg.Timeouts["objects.pull"] != 1800*time.Second {
		t.Errorf("objects.pull timeout = %v", cfg.Timeouts["objects.pull"])
	}
	if cfg.Timeouts["whoami"] != 5*time.Second {
		t.Errorf("whoami timeout = %v", cfg.Timeouts["whoami"])
	}
}

func TestLoad_ConfigFilePartial(t *testing.T) {
	isolate(t)
	path := writeConfigFile(t, `keep_files = true`)
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.KeepFiles {
		t.Error("KeepFiles should be true")
	}
	if cfg.ArtifactDir == "" {
		t.Error("undefined artifact_dir should keep the default")
	}
}

func TestLoad_NonPositiveTimeoutsIgnored(t *testing.T) {
	isolate(t)
	path := writeConfigFile(t, `
[timeouts]
"objects.pull" = 0
"doctor" = -5
`)
	t.Setenv(EnvConfigFile, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Timeouts) != 0 {
		t.Errorf("Timeouts = %v, want non-positive entries dropped", cfg.Timeouts)
	}
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	isolate(t)
	path := writeConfigFile(t, `
artifact_dir = "/data/scratch"
keep_files = true
`)
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvArtifactDir, "/env/scratch")
	t.Setenv(EnvKeepFiles, "no")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ArtifactDir != "/env/scratch" {
		t.Errorf("ArtifactDir = %q, env should win", cfg.ArtifactDir)
	}
	if cfg.KeepFiles {
		t.Error("KeepFiles should be false, env should win")
	}
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	isolate(t)
	path := writeConfigFile(t, `artifact_dir = [broken`)
	t.Setenv(EnvConfigFile, path)

	if _, err := Load(); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestIsTruthy(t *testing.T) {
	truthy := []string{"1", "true", "TRUE", "True", "yes", "YES", " yes "}
	for _, s := range truthy {
		if !isTruthy(s) {
			t.Errorf("isTruthy(%q) = false, want true", s)
		}
	}

	falsy := []string{"0", "false", "no", "off", "", "2", "y"}
	for _, s := range falsy {
		if isTruthy(s) {
			t.Errorf("isTruthy(%q) = true, want false", s)
		}
	}
}
