// Package runner executes the g-gremlin CLI as a child process.
//
// It owns three concerns: locating the executable (resolved once at
// startup and cached for the process lifetime), running commands under
// per-tool timeouts, and gating startup on a minimum CLI version.
//
// The runner never retries. A failed or timed-out command is reported
// back immediately as a Result; turning that into a response is the
// envelope builder's job.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/mod/semver"

	"github.com/g-gremlin/hubspot-mcp/internal/config"
)

// DefaultTimeout applies to tool classes without an entry in the
// timeout table.
const DefaultTimeout = 120 * time.Second

// versionTimeout bounds the --version probe at startup.
const versionTimeout = 10 * time.Second

// classTimeouts maps tool class names to their default timeouts.
// Bulk extraction and mutation go through auto-windowing and batch
// APIs on the CLI side, which can legitimately take minutes.
var classTimeouts = map[string]time.Duration{
	"whoami":           30 * time.Second,
	"doctor":           60 * time.Second,
	"schema.list":      60 * time.Second,
	"schema.get":       60 * time.Second,
	"props.list":       60 * time.Second,
	"objects.query":    60 * time.Second,
	"objects.pull":     900 * time.Second,
	"engagements.pull": 900 * time.Second,
	"dedupe.plan":      900 * time.Second,
	"props.drift":      60 * time.Second,
	"snapshot.create":  600 * time.Second,
	"snapshot.diff":    600 * time.Second,
	"objects.upsert":   900 * time.Second,
	"dedupe.apply":     900 * time.Second,
}

// Result is the raw outcome of one g-gremlin invocation.
// It is never mutated after creation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports whether the command exited cleanly.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Options tune a single Run call.
type Options struct {
	// Tool is the tool class name used for the timeout lookup
	// (e.g. "objects.pull"). Unknown names get DefaultTimeout.
	Tool string

	// Timeout overrides the class timeout when positive.
	Timeout time.Duration
}

// Runner invokes g-gremlin. The executable path is resolved in New and
// shared read-only across concurrent tool calls.
type Runner struct {
	bin       string
	overrides map[string]time.Duration
	log       zerolog.Logger
}

// New locates the g-gremlin executable and returns a Runner using it.
// The overrides map (from the config file) takes precedence over the
// built-in class timeouts.
func New(log zerolog.Logger, overrides map[string]time.Duration) (*Runner, error) {
	bin, err := findGremlin()
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", bin).Msg("resolved g-gremlin")
	return &Runner{bin: bin, overrides: overrides, log: log}, nil
}

// findGremlin locates the g-gremlin executable.
//
// Resolution order:
//  1. the directory of the current executable — a bundled install keeps
//     both binaries side by side and skips PATH entirely
//  2. PATH lookup
func findGremlin() (string, error) {
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		for _, name := range []string{"g-gremlin", "g-gremlin.exe"} {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}

	if path, err := exec.LookPath("g-gremlin"); err == nil {
		return path, nil
	}

	return "", errors.New(
		"g-gremlin not found next to this binary or on PATH. Install with: pipx install g-gremlin",
	)
}

// Run executes g-gremlin with args under the effective timeout and
// returns the captured output. It never returns an error: a timeout or
// spawn failure is reported as a synthetic Result with ExitCode -1, and
// the CLI's own nonzero exit codes pass through untouched.
func (r *Runner) Run(ctx context.Context, args []string, opts Options) Result {
	timeout := r.timeoutFor(opts)

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, r.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.log.Debug().
		Str("tool", opts.Tool).
		Strs("args", args).
		Dur("timeout", timeout).
		Msg("running g-gremlin")

	err := cmd.Run()

	if cctx.Err() == context.DeadlineExceeded {
		return Result{
			Stderr: fmt.Sprintf("Command timed out after %ds: %s %s",
				int(timeout.Seconds()), r.bin, strings.Join(args, " ")),
			ExitCode: -1,
		}
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Spawn failure after successful startup resolution —
			// e.g. the binary was removed mid-run.
			return Result{Stderr: err.Error(), ExitCode: -1}
		}
	}

	return Result{
		Stdout:   decode(stdout.Bytes()),
		Stderr:   decode(stderr.Bytes()),
		ExitCode: exitCode,
	}
}

// timeoutFor resolves the effective timeout: explicit override, then
// config-file override, then the class table, then DefaultTimeout.
func (r *Runner) timeoutFor(opts Options) time.Duration {
	if opts.Timeout > 0 {
		return opts.Timeout
	}
	if t, ok := r.overrides[opts.Tool]; ok {
		return t
	}
	if t, ok := classTimeouts[opts.Tool]; ok {
		return t
	}
	return DefaultTimeout
}

// decode converts captured output to a string, substituting the Unicode
// replacement character for invalid bytes.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// CheckVersion probes `g-gremlin --version` and verifies the detected
// version meets config.MinGremlinVersion. It returns the detected version
// on success. Any failure here is startup-fatal: the server must not
// begin serving tool calls against an unknown or outdated CLI.
func (r *Runner) CheckVersion(ctx context.Context) (string, error) {
	res := r.Run(ctx, []string{"--version"}, Options{Timeout: versionTimeout})
	if !res.OK() {
		return "", fmt.Errorf("g-gremlin --version failed (exit %d): %s",
			res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	detected, err := parseVersionOutput(res.Stdout)
	if err != nil {
		return "", err
	}
	if err := checkMinimum(detected); err != nil {
		return "", err
	}

	r.log.Info().
		Str("detected", detected).
		Str("required", ">="+config.MinGremlinVersion).
		Msg("g-gremlin version ok")
	return detected, nil
}

// parseVersionOutput extracts the version token from --version output.
// The CLI prints either "g-gremlin 0.1.14" or a bare "0.1.14"; the last
// whitespace-delimited token is the version either way.
func parseVersionOutput(stdout string) (string, error) {
	fields := strings.Fields(stdout)
	if len(fields) == 0 {
		return "", errors.New("g-gremlin --version produced no output")
	}
	v := fields[len(fields)-1]
	if !semver.IsValid("v" + v) {
		return "", fmt.Errorf("could not parse g-gremlin version %q", v)
	}
	return v, nil
}

// checkMinimum compares a detected version against MinGremlinVersion.
func checkMinimum(detected string) error {
	if semver.Compare("v"+detected, "v"+config.MinGremlinVersion) < 0 {
		return fmt.Errorf("g-gremlin %s found, but >=%s required. Run: pipx upgrade g-gremlin",
			detected, config.MinGremlinVersion)
	}
	return nil
}
