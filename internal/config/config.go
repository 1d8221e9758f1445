// Package config resolves all process-wide settings exactly once at startup.
//
// The server reads its environment (and an optional TOML file) here and
// nowhere else. The resulting Config is passed by value into the components
// that need it, so tests can build one directly instead of patching
// environment variables or globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// MinGremlinVersion is the oldest g-gremlin CLI this server works with.
// The runner enforces it at startup; every response envelope advertises it.
const MinGremlinVersion = "0.1.14"

// Environment variables recognized by the server.
const (
	// EnvArtifactDir overrides the base directory for scratch directories.
	EnvArtifactDir = "GREMLIN_MCP_ARTIFACT_DIR"
	// EnvKeepFiles disables scratch-dir cleanup when set to a truthy token.
	EnvKeepFiles = "GREMLIN_MCP_KEEP_FILES"
	// EnvConfigFile points at an alternate TOML config file.
	EnvConfigFile = "GREMLIN_MCP_CONFIG"
)

// Config holds every process-wide setting. Initialize-once, read-many:
// nothing mutates a Config after Load returns.
type Config struct {
	// ArtifactDir is the base directory under which per-invocation
	// scratch directories are created.
	ArtifactDir string

	// KeepFiles disables scratch-dir cleanup. Debug aid.
	KeepFiles bool

	// Timeouts are per-tool timeout overrides from the config file,
	// keyed by tool class name (e.g. "objects.pull"). They take
	// precedence over the runner's built-in defaults.
	Timeouts map[string]time.Duration
}

// fileConfig is the TOML shape of the optional config file.
type fileConfig struct {
	ArtifactDir string         `toml:"artifact_dir"`
	KeepFiles   bool           `toml:"keep_files"`
	Timeouts    map[string]int `toml:"timeouts"` // seconds
}

// Load builds the Config from defaults, the optional TOML file, and the
// environment, in that order (environment wins). A missing config file is
// not an error; a malformed one is, because silently ignoring it would
// leave the operator debugging ghost settings.
func Load() (*Config, error) {
	cfg := &Config{
		ArtifactDir: defaultArtifactDir(),
		Timeouts:    map[string]time.Duration{},
	}

	path := configFilePath()
	if _, err := os.Stat(path); err == nil {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
		if meta.IsDefined("artifact_dir") && strings.TrimSpace(raw.ArtifactDir) != "" {
			cfg.ArtifactDir = strings.TrimSpace(raw.ArtifactDir)
		}
		if meta.IsDefined("keep_files") {
			cfg.KeepFiles = raw.KeepFiles
		}
		for tool, secs := range raw.Timeouts {
			if secs > 0 {
				cfg.Timeouts[tool] = time.Duration(secs) * time.Second
			}
		}
	}

	if dir := os.Getenv(EnvArtifactDir); dir != "" {
		cfg.ArtifactDir = dir
	}
	if v := os.Getenv(EnvKeepFiles); v != "" {
		cfg.KeepFiles = isTruthy(v)
	}

	return cfg, nil
}

// defaultArtifactDir is ~/.g_gremlin/mcp_tmp, falling back to the system
// temp dir when the home directory cannot be determined.
func defaultArtifactDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "g_gremlin_mcp")
	}
	return filepath.Join(home, ".g_gremlin", "mcp_tmp")
}

// configFilePath honors EnvConfigFile, else ~/.g_gremlin/mcp.toml.
func configFilePath() string {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".g_gremlin", "mcp.toml")
}

// isTruthy reports whether s is one of the accepted boolean-ish tokens.
func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
