// Package cli implements the citygen command-line interface.
//
// The CLI is built with cobra and logs through charmbracelet/log. Terminal
// output uses lipgloss styles; the preview command is a bubbletea program.
//
// # Commands
//
//   - generate: Run the pipeline from a city file or preset and write outputs
//   - render: Draw a saved city.json document
//   - preview: Explore a city interactively in the terminal
//   - history: List, show and delete recorded runs
//   - serve: Run the HTTP API
//   - cache: Clear or locate the local caches
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/citygen/pkg/buildinfo"
	"github.com/matzehuels/citygen/pkg/cache"
	"github.com/matzehuels/citygen/pkg/httputil"
	"github.com/matzehuels/citygen/pkg/pipeline"
	"github.com/matzehuels/citygen/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "citygen"

	// remoteTTL is how long fetched remote city files are reused.
	remoteTTL = time.Hour
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "citygen grows road networks, blocks and lots from tensor fields",
		Long:          `citygen is a procedural city generator. It traces streamlines through a blended tensor field, snaps them into a planar road graph, extracts city blocks and subdivides them into lots.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	for _, cmd := range root.Commands() {
		registerCompletions(cmd)
	}

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(filepath.Join(dir, "runs"))
}

// newRemoteCache returns the cache for fetched city files.
func newRemoteCache() (*httputil.Cache, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, err
	}
	return httputil.NewCache(filepath.Join(dir, "remote"), remoteTTL)
}

// newHistory opens the local run history under the XDG data directory.
func newHistory() (store.Store, error) {
	return store.NewFileStore("")
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/citygen/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
