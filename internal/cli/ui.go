package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/citygen/pkg/pipeline"
)

// ANSI 256 palette.
var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// Styles shared by commands.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleLink      = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(12)
)

const (
	iconError  = "✗"
	iconCached = "cached"
	iconFresh  = "fresh"
)

// statusKind selects the icon and colors of a status line.
type statusKind int

const (
	statusSuccess statusKind = iota
	statusError
	statusWarning
	statusInfo
)

var statusIcons = [...]struct {
	icon  string
	style lipgloss.Style
	text  lipgloss.Style
}{
	statusSuccess: {"✓", lipgloss.NewStyle().Foreground(colorGreen), lipgloss.NewStyle()},
	statusError:   {iconError, styleIconError, lipgloss.NewStyle()},
	statusWarning: {"!", lipgloss.NewStyle().Foreground(colorYellow), StyleWarning},
	statusInfo:    {"›", lipgloss.NewStyle().Foreground(colorGray), lipgloss.NewStyle()},
}

func printStatus(kind statusKind, format string, args ...any) {
	s := statusIcons[kind]
	fmt.Println(s.style.Render(s.icon) + " " + s.text.Render(fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { printStatus(statusSuccess, format, args...) }
func printError(format string, args ...any)   { printStatus(statusError, format, args...) }
func printWarning(format string, args ...any) { printStatus(statusWarning, format, args...) }
func printInfo(format string, args ...any)    { printStatus(statusInfo, format, args...) }

// printDetail prints an indented, muted line under a status line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile lists a written artifact.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render("→") + " " + StyleValue.Render(path))
}

func printKeyValue(key, value string) {
	fmt.Println(styleKey.Render(key) + " " + StyleValue.Render(value))
}

// printStats prints non-zero network counts followed by the cache state.
func printStats(stats pipeline.Stats, cached bool) {
	fmt.Println("  " + statsLine(stats, cached))
}

func statsLine(stats pipeline.Stats, cached bool) string {
	var parts []string
	for _, c := range []struct {
		n    int
		unit string
	}{
		{stats.Nodes, "nodes"},
		{stats.Edges, "roads"},
		{stats.Blocks, "blocks"},
		{stats.Lots, "lots"},
	} {
		if c.n > 0 {
			parts = append(parts, StyleNumber.Render(fmt.Sprint(c.n))+StyleDim.Render(" "+c.unit))
		}
	}
	if cached {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorGreen).Render(iconCached))
	} else {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorGray).Render(iconFresh))
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

// printDiagnostics reports non-fatal conditions met during a run.
func printDiagnostics(d pipeline.Diagnostics) {
	if d.TopologyAnomalies > 0 {
		printWarning("%d topology anomalies (blocks skipped)", d.TopologyAnomalies)
	}
	if d.SliverLots > 0 {
		printDetail("%d undersized lots", d.SliverLots)
	}
	if d.DegenerateTerminations > 0 {
		printDetail("%d streamlines stopped at degenerate points", d.DegenerateTerminations)
	}
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + lipgloss.NewStyle().Foreground(colorBlue).Render(cmd))
}

func printNewline() { fmt.Println() }
