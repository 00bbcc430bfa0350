package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/citygen/pkg/cache"
	"github.com/matzehuels/citygen/pkg/citymap"
	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/pipeline"
)

// renderCommand creates the render command for drawing a saved document.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		formatsStr string
		output     string
		noCache    bool
		ropts      pipeline.RenderOptions
	)

	cmd := &cobra.Command{
		Use:   "render [city.json]",
		Short: "Render a generated city document",
		Long: `Render a generated city document.

The render command takes a city.json document (produced by 'generate -f json')
and draws it as SVG, PNG, PDF, DOT or a Graphviz SVG of the road graph, or
converts it to GeoJSON. No generation happens; the document's geometry is
used as is.

Rendered images are cached by the document's content.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ropts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(ropts.Formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], ropts, output, noCache)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), geojson, dot, graph.svg, png, pdf (comma-separated)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	addRenderFlags(cmd.Flags(), &ropts)

	return cmd
}

// runRender loads the document and renders it.
func (c *CLI) runRender(ctx context.Context, input string, ropts pipeline.RenderOptions, output string, noCache bool) error {
	data, err := os.ReadFile(input)
	if os.IsNotExist(err) {
		return errors.Wrap(errors.ErrCodeFileNotFound, err, "document %s not found", input)
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}
	doc, err := citymap.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("load document %s: %w", input, err)
	}

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Rendering...")
	spinner.Start()
	defer followStages(spinner)()

	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, doc, cache.Hash(data), ropts)
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return fmt.Errorf("render: %w", err)
	}
	spinner.Stop()

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: artifacts,
		formats:   ropts.Formats,
		input:     input,
		output:    output,
	})
	if err != nil {
		return err
	}

	printSuccess("Rendered %s", input)
	for _, p := range paths {
		printFile(p)
	}
	sum := doc.Summary()
	printStats(pipeline.Stats{Nodes: sum.Nodes, Edges: sum.Edges, Blocks: sum.Blocks, Lots: sum.Lots}, cacheHit)
	return nil
}
