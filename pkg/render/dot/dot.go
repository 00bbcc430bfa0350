// Package dot exports the road graph in Graphviz DOT format.
//
// Nodes carry pinned positions (pos="x,y!") so the neato engine keeps the
// generated geometry instead of computing its own layout. The output is
// useful for inspecting topology: node ids, degrees and edge classes.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/citygen/pkg/citymap"
	"github.com/matzehuels/citygen/pkg/roadgraph"
)

// Options configures DOT export.
type Options struct {
	// Scale converts world units to points; zero means 0.1.
	Scale float64
	// Labels shows node ids.
	Labels bool
}

var classColors = map[roadgraph.Class]string{
	roadgraph.Highway: "darkorange",
	roadgraph.Major:   "black",
	roadgraph.Minor:   "gray40",
	roadgraph.Alley:   "gray70",
}

var classWidths = map[roadgraph.Class]float64{
	roadgraph.Highway: 3,
	roadgraph.Major:   2,
	roadgraph.Minor:   1,
	roadgraph.Alley:   0.5,
}

// ToDOT converts a document's road graph to an undirected DOT graph.
// Shape points are not drawn; each edge is a straight chord.
func ToDOT(doc citymap.Document, opts Options) string {
	scale := opts.Scale
	if scale <= 0 {
		scale = 0.1
	}

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=false;\n")
	if opts.Labels {
		buf.WriteString("  node [shape=circle, width=0.25, fixedsize=true, fontsize=8];\n")
	} else {
		buf.WriteString("  node [shape=point, width=0.06];\n")
	}
	buf.WriteString("\n")

	for _, n := range doc.Nodes {
		attrs := fmt.Sprintf("pos=\"%.2f,%.2f!\"", n.Pos[0]*scale, n.Pos[1]*scale)
		if opts.Labels {
			attrs += fmt.Sprintf(", label=\"%d\"", n.ID)
		}
		if n.Role == roadgraph.DeadEnd.String() {
			attrs += ", color=red"
		}
		fmt.Fprintf(&buf, "  n%d [%s];\n", n.ID, attrs)
	}

	buf.WriteString("\n")
	for _, e := range doc.Edges {
		color, ok := classColors[e.Class]
		if !ok {
			color = "black"
		}
		fmt.Fprintf(&buf, "  n%d -- n%d [color=%s, penwidth=%g, tooltip=\"%s %.1f\"];\n",
			e.From, e.To, color, classWidths[e.Class], e.Class, e.Length)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG lays out a DOT graph with neato and renders it to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with a
// pixel one so the image scales in browsers.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}
