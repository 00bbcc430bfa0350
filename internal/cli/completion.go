package cli

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/citygen/pkg/config"
	"github.com/matzehuels/citygen/pkg/pipeline"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for citygen.

Presets, output formats and run ids complete dynamically.

  bash:        source <(citygen completion bash)
  zsh:         citygen completion zsh > "${fpath[1]}/_citygen"
  fish:        citygen completion fish > ~/.config/fish/completions/citygen.fish
  powershell:  citygen completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(os.Stdout, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}

// registerCompletions attaches dynamic completions to the flags cmd has.
func registerCompletions(cmd *cobra.Command) {
	if cmd.Flags().Lookup("preset") != nil {
		_ = cmd.RegisterFlagCompletionFunc("preset", completePresets)
	}
	if cmd.Flags().Lookup("format") != nil {
		_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)
	}
	if cmd.Flags().Lookup("integrator") != nil {
		_ = cmd.RegisterFlagCompletionFunc("integrator",
			cobra.FixedCompletions([]string{"rk4", "euler"}, cobra.ShellCompDirectiveNoFileComp))
	}
}

func completePresets(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return config.Presets(), cobra.ShellCompDirectiveNoFileComp
}

// completeFormats completes the last entry of a comma-separated list.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	done, _ := splitLast(toComplete)
	var out []string
	for _, f := range extensions {
		out = append(out, done+f)
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

// completeRunIDs completes run ids from the local history.
func completeRunIDs(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	st, err := newHistory()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer st.Close()
	runs, err := st.List(cmd.Context(), 50)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID + "\tseed " + formatSeed(r.Options)
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// splitLast splits "svg,geo" into ("svg,", "geo").
func splitLast(s string) (done, last string) {
	i := strings.LastIndexByte(s, ',')
	return s[:i+1], s[i+1:]
}

func formatSeed(o pipeline.Options) string {
	if o.Seed == 0 {
		return "default"
	}
	return strconv.FormatUint(o.Seed, 10)
}
