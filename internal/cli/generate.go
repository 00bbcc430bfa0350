package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/citygen/pkg/config"
	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/pipeline"
	"github.com/matzehuels/citygen/pkg/store"
)

// sourceOpts selects where the base configuration comes from.
type sourceOpts struct {
	config  string // city file path or URL
	preset  string // built-in preset name
	refresh bool   // refetch remote files and bypass the run cache
}

// generateOpts holds the generate command's own flags.
type generateOpts struct {
	sourceOpts
	output     string
	formats    string
	noCache    bool
	noHistory  bool
	saveConfig string
	size       float64
}

// generateCommand creates the generate command.
func (c *CLI) generateCommand() *cobra.Command {
	var (
		gopts generateOpts
		opts  pipeline.Options
		ropts pipeline.RenderOptions
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a city from a city file or preset",
		Long: `Generate a city from a city file or preset.

The base configuration comes from --config (a TOML, YAML or JSON city file,
local or remote) or --preset (grid, radial, blend, river). Flags you set
explicitly override the file's values.

Runs are cached by their options, so regenerating an unchanged city is
instant. Every run is recorded in the local history (see 'citygen history').

Examples:
  citygen generate                               # default preset, SVG
  citygen generate -p river -f svg,geojson       # river preset, two outputs
  citygen generate -c city.toml --seed 7 -o out  # file + seed override
  citygen generate -c https://example.com/city.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit := changedFlags(cmd.Flags())
			return c.runGenerate(cmd.Context(), gopts, opts, ropts, explicit)
		},
	}

	f := cmd.Flags()
	addSourceFlags(f, &gopts.sourceOpts)

	// Output flags
	f.StringVarP(&gopts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	f.StringVarP(&gopts.formats, "format", "f", "", "output format(s): svg (default), json, geojson, dot, graph.svg, png, pdf (comma-separated)")
	f.BoolVar(&gopts.noCache, "no-cache", false, "disable caching")
	f.BoolVar(&gopts.noHistory, "no-history", false, "do not record the run in the history")
	f.StringVar(&gopts.saveConfig, "save-config", "", "write the effective configuration to this file (.toml, .yaml, .json)")

	addPipelineFlags(f, &opts, &gopts.size)
	addRenderFlags(f, &ropts)

	return cmd
}

// addSourceFlags registers --config, --preset and --refresh.
func addSourceFlags(f *pflag.FlagSet, s *sourceOpts) {
	f.StringVarP(&s.config, "config", "c", "", "city file (TOML, YAML or JSON; local path or URL)")
	f.StringVarP(&s.preset, "preset", "p", "", fmt.Sprintf("built-in preset: %s (default %s)", strings.Join(config.Presets(), ", "), config.DefaultPreset))
	f.BoolVar(&s.refresh, "refresh", false, "bypass caches and refetch remote city files")
}

// addPipelineFlags registers one flag per tunable option. Flag names are
// the options' JSON names with dashes so config.Merge can match them.
func addPipelineFlags(f *pflag.FlagSet, opts *pipeline.Options, size *float64) {
	f.Float64Var(size, "size", pipeline.DefaultSize, "side length of the square map")
	f.Uint64Var(&opts.Seed, "seed", pipeline.DefaultSeed, "random seed")
	f.Float64Var(&opts.DefaultAngle, "default-angle", 0, "grid angle in degrees where no field has influence")

	// Tracing
	f.Float64Var(&opts.SeedSpacing, "seed-spacing", pipeline.DefaultSeedSpacing, "distance between streamline seeds")
	f.Float64Var(&opts.SeedJitter, "seed-jitter", 0, "seed position jitter as a fraction of the spacing (0-1)")
	f.Float64Var(&opts.StepLength, "step-length", pipeline.DefaultStepLength, "integration step length")
	f.Float64Var(&opts.MaxLength, "max-length", pipeline.DefaultMaxLength, "maximum streamline length")
	f.StringVar(&opts.Integrator, "integrator", pipeline.DefaultIntegrator, "integrator: rk4, euler")
	f.Float64Var(&opts.Separation, "separation", pipeline.DefaultSeparation, "minimum distance between parallel roads")
	f.Float64Var(&opts.MinorSeparation, "minor-separation", 0, "separation for minor roads (default: --separation)")

	// Graph
	f.Float64Var(&opts.SnapRadius, "snap-radius", pipeline.DefaultSnapRadius, "endpoint snapping radius")
	f.Float64Var(&opts.MinEdgeLength, "min-edge-length", pipeline.DefaultMinEdgeLength, "shortest road segment kept")
	f.BoolVar(&opts.PruneStubs, "prune-stubs", false, "remove dangling road stubs")
	f.Float64Var(&opts.StubLength, "stub-length", pipeline.DefaultStubLength, "longest stub removed by --prune-stubs")
	f.Float64Var(&opts.AlleyLength, "alley-length", pipeline.DefaultAlleyLength, "minor roads shorter than this are alleys")

	// Blocks and lots
	f.Float64Var(&opts.MinBlockArea, "min-block-area", pipeline.DefaultMinBlockArea, "smallest block kept")
	f.Float64Var(&opts.MinLotArea, "min-lot-area", pipeline.DefaultMinLotArea, "smallest regular lot")
	f.Float64Var(&opts.MaxLotArea, "max-lot-area", pipeline.DefaultMaxLotArea, "lots above this area are split")
	f.Float64Var(&opts.MinSplittableArea, "min-splittable-area", 0, "pieces below this area are never split (default: 2 x --min-lot-area)")
	f.IntVar(&opts.MaxLotsPerBlock, "max-lots-per-block", 0, "cap on lots per block (0 = unlimited)")

	f.IntVar(&opts.Workers, "workers", 0, "parallel tracing workers (default: GOMAXPROCS)")
}

// addRenderFlags registers map layer and size flags.
func addRenderFlags(f *pflag.FlagSet, r *pipeline.RenderOptions) {
	f.IntVar(&r.Width, "width", 0, "map width in pixels")
	f.BoolVar(&r.HideBlocks, "hide-blocks", false, "do not fill blocks")
	f.BoolVar(&r.Lots, "lots", false, "draw lots")
	f.BoolVar(&r.Nodes, "nodes", false, "draw graph nodes")
	f.BoolVar(&r.Streamlines, "streamlines", false, "draw raw streamlines")
	f.BoolVar(&r.Labels, "labels", false, "label nodes in DOT output")
}

// changedFlags returns the names of flags set on the command line.
func changedFlags(f *pflag.FlagSet) map[string]bool {
	explicit := make(map[string]bool)
	f.Visit(func(fl *pflag.Flag) { explicit[fl.Name] = true })
	if explicit["size"] {
		explicit["bounds"] = true
	}
	return explicit
}

// loadSource returns the base file for a run: a city file, a preset, or
// the default preset.
func loadSource(ctx context.Context, s sourceOpts) (*config.File, string, error) {
	if s.config != "" && s.preset != "" {
		return nil, "", errors.New(errors.ErrCodeInvalidInput, "--config and --preset are mutually exclusive")
	}
	if s.config != "" {
		loader := &config.Loader{Refresh: s.refresh}
		if remote, err := newRemoteCache(); err == nil {
			loader.Cache = remote
		}
		f, err := loader.Load(ctx, s.config)
		if err != nil {
			return nil, "", err
		}
		return f, stem(s.config), nil
	}

	name := s.preset
	if name == "" {
		name = config.DefaultPreset
	}
	opts, err := config.Preset(name)
	if err != nil {
		return nil, "", err
	}
	return &config.File{Options: opts}, name, nil
}

// resolveOptions merges explicitly set flags over the source file.
func resolveOptions(file *config.File, flags pipeline.Options, size float64, explicit map[string]bool) pipeline.Options {
	if explicit["size"] {
		flags.Bounds = [4]float64{0, 0, size, size}
	}
	return config.Merge(flags, file.Options, explicit)
}

// resolveRender overlays explicitly set render flags on the file's
// [render] section.
func resolveRender(file pipeline.RenderOptions, flags pipeline.RenderOptions, formats string, explicit map[string]bool) pipeline.RenderOptions {
	out := file
	if explicit["format"] {
		out.Formats = parseFormats(formats)
	}
	if explicit["width"] {
		out.Width = flags.Width
	}
	if explicit["hide-blocks"] {
		out.HideBlocks = flags.HideBlocks
	}
	if explicit["lots"] {
		out.Lots = flags.Lots
	}
	if explicit["nodes"] {
		out.Nodes = flags.Nodes
	}
	if explicit["streamlines"] {
		out.Streamlines = flags.Streamlines
	}
	if explicit["labels"] {
		out.Labels = flags.Labels
	}
	out.SetDefaults()
	return out
}

// runGenerate loads the configuration, runs the pipeline and writes outputs.
func (c *CLI) runGenerate(ctx context.Context, g generateOpts, flagOpts pipeline.Options, flagRender pipeline.RenderOptions, explicit map[string]bool) error {
	file, name, err := loadSource(ctx, g.sourceOpts)
	if err != nil {
		return err
	}

	opts := resolveOptions(file, flagOpts, g.size, explicit)
	opts.Refresh = g.refresh
	ropts := resolveRender(file.Render, flagRender, g.formats, explicit)
	if err := pipeline.ValidateFormats(ropts.Formats); err != nil {
		return err
	}

	if g.saveConfig != "" {
		if err := saveConfig(g.saveConfig, opts, ropts); err != nil {
			return err
		}
	}

	runner, err := c.newRunner(g.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Generating %s...", name))
	spinner.Start()
	defer followStages(spinner)()

	prog := newProgress(c.Logger)
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return fmt.Errorf("generate: %w", err)
	}
	artifacts, err := runner.Render(ctx, result, ropts)
	if err != nil {
		spinner.StopWithError("Rendering failed")
		return fmt.Errorf("render: %w", err)
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Generated %s", name), "run", result.RunID, "cached", result.CacheInfo.RunHit)

	output := g.output
	if output == "" {
		output = name
	}
	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: artifacts,
		formats:   ropts.Formats,
		input:     localSource(g.config),
		output:    output,
	})
	if err != nil {
		return err
	}

	if !g.noHistory {
		c.recordRun(ctx, result)
	}

	printSuccess("City generated")
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats, result.CacheInfo.RunHit)
	printDiagnostics(result.Diagnostics)
	printNewline()
	printNextStep("Explore interactively", "citygen preview "+previewArgs(g.sourceOpts))

	return nil
}

// recordRun saves a run to the local history. Failures only warn.
func (c *CLI) recordRun(ctx context.Context, result *pipeline.Result) {
	st, err := newHistory()
	if err != nil {
		c.Logger.Warn("history unavailable", "error", err)
		return
	}
	defer st.Close()
	rec := store.NewRecord(result)
	if err := st.Save(ctx, &rec); err != nil {
		c.Logger.Warn("record run failed", "error", err)
		return
	}
	c.Logger.Debug("recorded run", "id", rec.ID)
}

// saveConfig writes the effective configuration as a city file.
func saveConfig(path string, opts pipeline.Options, ropts pipeline.RenderOptions) error {
	format, err := config.FormatOf(path)
	if err != nil {
		return err
	}
	data, err := config.Encode(&config.File{Options: opts, Render: ropts}, format)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	printFile(path)
	return nil
}

// stem returns a source's file name without directory or extension.
func stem(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// localSource returns src if it is a local file, otherwise "".
func localSource(src string) string {
	if src == "" || config.IsRemote(src) {
		return ""
	}
	return src
}

func previewArgs(s sourceOpts) string {
	switch {
	case s.config != "":
		return "-c " + s.config
	case s.preset != "":
		return "-p " + s.preset
	}
	return ""
}
