// gremlin-hubspot-mcp: MCP server for the g-gremlin HubSpot CLI.
//
// Exposes g-gremlin's CRM operations as MCP tools behind a uniform
// response envelope, with dry-run-by-default mutation safety.
//
// Usage:
//
//	gremlin-hubspot-mcp serve    # Start MCP server (stdio transport)
//	gremlin-hubspot-mcp update   # Update to the latest version
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/g-gremlin/hubspot-mcp/internal/config"
	gremlinserver "github.com/g-gremlin/hubspot-mcp/internal/server"
	"github.com/g-gremlin/hubspot-mcp/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("gremlin-hubspot-mcp v%s\n", gremlinserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	// MCP owns stdout for the protocol; all logging goes to stderr.
	log := zerolog.New(os.Stderr).With().Timestamp().Str("app", "gremlin-hubspot-mcp").Logger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := gremlinserver.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Background release check — prints to stderr so it doesn't
	// interfere with the stdio transport.
	go checkForUpdates()

	return server.ServeStdio(s)
}

// checkForUpdates runs a non-blocking release check and prints a notice
// to stderr if an update is available. Best-effort — network failures
// are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(gremlinserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s -> v%s\n"+
				"  Run: gremlin-hubspot-mcp update\n"+
				"  Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest release.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "Checking for updates...\n")

	result := updater.CheckVersion(gremlinserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s -> v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Downloading...\n")

	if err := updater.SelfUpdate(gremlinserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n  You can download manually from:\n  %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s. Restart the server to use the new version.\n", result.LatestVersion)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `gremlin-hubspot-mcp v%s — MCP server for the g-gremlin HubSpot CLI

Usage:
  gremlin-hubspot-mcp serve    Start the MCP server (stdio transport)
  gremlin-hubspot-mcp update   Update to the latest version

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "gremlin-hubspot": {
        "command": "gremlin-hubspot-mcp",
        "args": ["serve"]
      }
    }
  }

Environment:
  %s   Base directory for scratch output (default ~/.g_gremlin/mcp_tmp)
  %s     Keep scratch files after each call (1/true/yes)
  %s         Alternate config file (default ~/.g_gremlin/mcp.toml)
`, gremlinserver.Version, config.EnvArtifactDir, config.EnvKeepFiles, config.EnvConfigFile)
}
