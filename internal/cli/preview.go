package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/matzehuels/citygen/pkg/citymap"
	"github.com/matzehuels/citygen/pkg/pipeline"
	"github.com/matzehuels/citygen/pkg/roadgraph"
)

const (
	// separationStep is how much +/- changes the road separation.
	separationStep = 2.0
	minSeparation  = 2.0

	previewCols = 80
	previewRows = 24
)

// Map glyphs, one per road class.
const (
	glyphNode = '+'
	glyphNone = ' '
)

var classGlyphs = map[roadgraph.Class]rune{
	roadgraph.Highway: '#',
	roadgraph.Major:   '=',
	roadgraph.Minor:   '-',
	roadgraph.Alley:   '.',
}

var glyphStyles = map[rune]lipgloss.Style{
	'#':       lipgloss.NewStyle().Foreground(colorYellow).Bold(true),
	'=':       lipgloss.NewStyle().Foreground(colorWhite),
	'-':       lipgloss.NewStyle().Foreground(colorGray),
	'.':       lipgloss.NewStyle().Foreground(colorDim),
	glyphNode: lipgloss.NewStyle().Foreground(colorCyan),
}

// previewCommand creates the interactive preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		src     sourceOpts
		opts    pipeline.Options
		size    float64
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Explore a city interactively in the terminal",
		Long: `Explore a city interactively in the terminal.

The road network is drawn as text and regenerated on every change:
  r      new seed
  + / -  wider or narrower road separation
  q      quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			explicit := changedFlags(cmd.Flags())
			return c.runPreview(cmd.Context(), src, opts, size, explicit, noCache)
		},
	}

	f := cmd.Flags()
	addSourceFlags(f, &src)
	addPipelineFlags(f, &opts, &size)
	f.BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runPreview(ctx context.Context, src sourceOpts, flags pipeline.Options, size float64, explicit map[string]bool, noCache bool) error {
	file, _, err := loadSource(ctx, src)
	if err != nil {
		return err
	}
	opts := resolveOptions(file, flags, size, explicit)
	opts.Refresh = src.refresh

	runner, err := c.newRunner(noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	// Log lines would tear the alternate screen.
	runner.Logger = log.New(io.Discard)

	m := newPreviewModel(ctx, runner, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	runner.OnRegenerated(func(res *pipeline.Result) {
		p.Send(regeneratedMsg{doc: res.Document(), stats: res.Stats, cached: res.CacheInfo.RunHit})
	})

	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(previewModel); ok && fm.err != nil {
		return fm.err
	}
	return nil
}

// =============================================================================
// previewModel
// =============================================================================

type regeneratedMsg struct {
	doc    citymap.Document
	stats  pipeline.Stats
	cached bool
}

type previewErrMsg struct{ err error }

// previewModel is the bubbletea model for the preview command. Results
// arrive through the runner's regeneration hook, not the command's return.
type previewModel struct {
	ctx    context.Context
	runner *pipeline.Runner
	opts   pipeline.Options

	doc    *citymap.Document
	stats  pipeline.Stats
	cached bool
	busy   bool
	err    error

	width, height int
}

func newPreviewModel(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options) previewModel {
	if opts.Seed == 0 {
		opts.Seed = pipeline.DefaultSeed
	}
	if opts.Separation <= 0 {
		opts.Separation = pipeline.DefaultSeparation
	}
	return previewModel{
		ctx:    ctx,
		runner: runner,
		opts:   opts,
		busy:   true,
		width:  previewCols,
		height: previewRows,
	}
}

func (m previewModel) Init() tea.Cmd {
	return m.generate()
}

// generate runs the pipeline with the current options.
func (m previewModel) generate() tea.Cmd {
	ctx, runner, opts := m.ctx, m.runner, m.opts
	return func() tea.Msg {
		if runner == nil {
			return nil
		}
		if _, err := runner.Execute(ctx, opts); err != nil {
			return previewErrMsg{err}
		}
		return nil
	}
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.opts.Seed++
			return m.regenerate()
		case "+", "=":
			m.opts.Separation += separationStep
			return m.regenerate()
		case "-", "_":
			if m.opts.Separation-separationStep < minSeparation {
				return m, nil
			}
			m.opts.Separation -= separationStep
			return m.regenerate()
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case regeneratedMsg:
		m.doc = &msg.doc
		m.stats = msg.stats
		m.cached = msg.cached
		m.busy = false
		m.err = nil
	case previewErrMsg:
		m.err = msg.err
		m.busy = false
	}
	return m, nil
}

func (m previewModel) regenerate() (tea.Model, tea.Cmd) {
	m.busy = true
	return m, m.generate()
}

func (m previewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("citygen preview"))
	b.WriteString("  ")
	b.WriteString(StyleDim.Render(fmt.Sprintf("seed %d  separation %g", m.opts.Seed, m.opts.Separation)))
	if m.busy {
		b.WriteString("  " + StyleWarning.Render("generating..."))
	}
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(styleIconError.Render(iconError) + " " + m.err.Error() + "\n")
	case m.doc != nil:
		for _, line := range rasterize(*m.doc, m.width, m.height-3) {
			b.WriteString(colorize(line))
			b.WriteString("\n")
		}
	}

	status := fmt.Sprintf("%d nodes  %d roads  %d blocks  %d lots", m.stats.Nodes, m.stats.Edges, m.stats.Blocks, m.stats.Lots)
	if m.cached {
		status += "  " + iconCached
	}
	b.WriteString(StyleDim.Render(status + "  |  r reseed  +/- separation  q quit"))
	return b.String()
}

// =============================================================================
// Rasterizer
// =============================================================================

// rasterize draws the road graph into a cols x rows character grid with
// north up. Higher road classes overwrite lower ones; nodes are drawn last.
func rasterize(doc citymap.Document, cols, rows int) []string {
	if cols <= 0 || rows <= 0 {
		return nil
	}

	grid := make([][]rune, rows)
	rank := make([][]int, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(string(glyphNone), cols))
		rank[r] = make([]int, cols)
		for c := range rank[r] {
			rank[r][c] = math.MaxInt
		}
	}

	bounds := doc.Bounds.Bound()
	cell := func(p orb.Point) (int, int) {
		c := scale(p[0], bounds.Min[0], bounds.Max[0], cols)
		r := rows - 1 - scale(p[1], bounds.Min[1], bounds.Max[1], rows)
		return c, r
	}

	pos := make(map[int]orb.Point, len(doc.Nodes))
	for _, n := range doc.Nodes {
		pos[n.ID] = n.Pos
	}

	for _, e := range doc.Edges {
		from, ok1 := pos[e.From]
		to, ok2 := pos[e.To]
		if !ok1 || !ok2 {
			continue
		}
		glyph, ok := classGlyphs[e.Class]
		if !ok {
			continue
		}
		line := append(append(orb.LineString{from}, e.Shape...), to)
		for i := 1; i < len(line); i++ {
			c0, r0 := cell(line[i-1])
			c1, r1 := cell(line[i])
			plot(c0, r0, c1, r1, func(c, r int) {
				if int(e.Class) <= rank[r][c] {
					grid[r][c] = glyph
					rank[r][c] = int(e.Class)
				}
			})
		}
	}

	for _, n := range doc.Nodes {
		c, r := cell(n.Pos)
		grid[r][c] = glyphNode
	}

	out := make([]string, rows)
	for r := range grid {
		out[r] = string(grid[r])
	}
	return out
}

// scale maps v in [lo, hi] onto a cell index in [0, n).
func scale(v, lo, hi float64, n int) int {
	span := hi - lo
	if span <= 0 || n == 1 {
		return 0
	}
	i := int(math.Round((v - lo) / span * float64(n-1)))
	return max(0, min(n-1, i))
}

// plot visits every cell on the segment between two cells.
func plot(c0, r0, c1, r1 int, visit func(c, r int)) {
	steps := max(abs(c1-c0), abs(r1-r0))
	if steps == 0 {
		visit(c0, r0)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		c := c0 + int(math.Round(t*float64(c1-c0)))
		r := r0 + int(math.Round(t*float64(r1-r0)))
		visit(c, r)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// colorize styles runs of equal glyphs.
func colorize(line string) string {
	var b strings.Builder
	runes := []rune(line)
	for i := 0; i < len(runes); {
		j := i
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		run := string(runes[i:j])
		if st, ok := glyphStyles[runes[i]]; ok {
			run = st.Render(run)
		}
		b.WriteString(run)
		i = j
	}
	return b.String()
}
