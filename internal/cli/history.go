package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/citygen/pkg/config"
	"github.com/matzehuels/citygen/pkg/store"
)

// historyCommand creates the history command for browsing past runs.
func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse previously generated cities",
	}

	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyShowCommand())
	cmd.AddCommand(c.historyRemoveCommand())

	return cmd
}

// historyListCommand creates the "history list" subcommand.
func (c *CLI) historyListCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer st.Close()
			runs, err := st.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No runs recorded yet")
				printNextStep("Generate one", "citygen generate")
				return nil
			}
			fmt.Println(runTable(runs, time.Now()))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultListLimit, "number of runs to show")
	return cmd
}

// historyShowCommand creates the "history show" subcommand.
func (c *CLI) historyShowCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:               "show <run-id>",
		Short:             "Show a run's summary and configuration",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeRunIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := getRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return showRun(rec, format)
		},
	}
	cmd.Flags().StringVar(&format, "config-format", config.FormatTOML, "configuration format: toml, yaml, json")
	return cmd
}

// historyRemoveCommand creates the "history rm" subcommand.
func (c *CLI) historyRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:               "rm <run-id>",
		Short:             "Delete a run from the history",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeRunIDs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := newHistory()
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer st.Close()
			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("Deleted run %s", args[0])
			return nil
		},
	}
}

func getRun(ctx context.Context, id string) (*store.RunRecord, error) {
	st, err := newHistory()
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer st.Close()
	return st.Get(ctx, id)
}

func showRun(rec *store.RunRecord, format string) error {
	data, err := config.Encode(&config.File{Options: rec.Options}, format)
	if err != nil {
		return err
	}

	fmt.Println(StyleTitle.Render("Run " + rec.ID))
	printKeyValue("Created", rec.CreatedAt.Local().Format("Jan 2, 2006 15:04:05"))
	printKeyValue("Hash", rec.OptionsHash)
	printKeyValue("Cached", fmt.Sprintf("%v", rec.Cached))
	printKeyValue("Roads", fmt.Sprintf("%d nodes, %d edges", rec.Nodes, rec.Edges))
	printKeyValue("Blocks", fmt.Sprintf("%d", rec.Blocks))
	printKeyValue("Lots", fmt.Sprintf("%d (%d undersized)", rec.Lots, rec.Diagnostics.SliverLots))
	printKeyValue("Duration", rec.Durations.Total.Round(time.Millisecond).String())
	printNewline()
	fmt.Println(StyleDim.Render("# configuration"))
	fmt.Print(string(data))
	printNewline()
	printNextStep("Regenerate", fmt.Sprintf("citygen generate --seed %d", rec.Options.Seed))
	return nil
}

// runTable renders runs as a table.
func runTable(runs []store.RunRecord, now time.Time) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		cached := ""
		if r.Cached {
			cached = iconCached
		}
		rows = append(rows, []string{
			r.ID,
			formatRelativeTime(r.CreatedAt, now),
			fmt.Sprintf("%d", r.Options.Seed),
			fmt.Sprintf("%d", r.Nodes),
			fmt.Sprintf("%d", r.Blocks),
			fmt.Sprintf("%d", r.Lots),
			cached,
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "Created", "Seed", "Nodes", "Blocks", "Lots", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return headerStyle.Padding(0, 1)
			case col == 0:
				return base.Foreground(colorCyan)
			case col == 1 || col == 6:
				return base.Foreground(colorDim)
			}
			return base.Foreground(colorWhite)
		})
	return t.Render()
}

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
