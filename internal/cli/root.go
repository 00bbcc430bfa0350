package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/citygen/pkg/observability"
)

// Execute runs the citygen CLI and returns an error if any command fails.
// This is the main entry point for the CLI application.
//
// Logging goes to stderr at info level. With --verbose (-v) the level
// drops to debug and stage, cache and request events are logged too.
//
// Example:
//
//	func main() {
//	    ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	    defer cancel()
//	    if err := cli.Execute(ctx); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context) error {
	return newRoot().ExecuteContext(ctx)
}

// newRoot builds the root command with the --verbose flag wired to the
// shared logger.
func newRoot() *cobra.Command {
	var verbose bool

	c := New(os.Stderr, LogInfo)
	root := c.RootCommand()
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if verbose {
			c.SetLogLevel(LogDebug)
			observability.NewLogHooks(c.Logger).Install()
		}
	}
	return root
}
