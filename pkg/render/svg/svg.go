// Package svg renders a generated city as a standalone SVG map.
//
// Layers are drawn bottom to top: blocks, lots, streamlines, roads and
// nodes. Roads are stroked by class so the hierarchy reads at a glance.
// The map is scaled to the requested width with north up (larger y is
// drawn higher).
package svg

import (
	"bytes"
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/citygen/pkg/citymap"
	"github.com/matzehuels/citygen/pkg/roadgraph"
)

// DefaultWidth is the default image width in pixels.
const DefaultWidth = 1024.0

const styleCSS = `
    .bg { fill: #f4f1ea; }
    .block { fill: #e2dccd; stroke: none; }
    .lot { fill: none; stroke: #b9ae97; stroke-width: 0.6; }
    .lot.undersized { fill: #f2c6b4; }
    .streamline { fill: none; stroke: #9fb7c9; stroke-width: 0.5; stroke-dasharray: 2 2; }
    .road { fill: none; stroke-linecap: round; stroke-linejoin: round; }
    .road.highway { stroke: #d9822b; stroke-width: 6; }
    .road.major { stroke: #ffffff; stroke-width: 4; }
    .road.minor { stroke: #ffffff; stroke-width: 2.5; }
    .road.alley { stroke: #fbfaf7; stroke-width: 1.2; }
    .node { fill: #5a5a5a; }
    .node.dead_end { fill: #c0392b; }`

// Option configures rendering.
type Option func(*renderer)

type renderer struct {
	width       float64
	blocks      bool
	lots        bool
	nodes       bool
	streamlines bool
}

// WithWidth sets the image width in pixels. Height follows the map's
// aspect ratio.
func WithWidth(w float64) Option {
	return func(r *renderer) {
		if w > 0 {
			r.width = w
		}
	}
}

// WithoutBlocks skips the block fill layer.
func WithoutBlocks() Option { return func(r *renderer) { r.blocks = false } }

// WithLots draws lot outlines; undersized lots are tinted.
func WithLots() Option { return func(r *renderer) { r.lots = true } }

// WithNodes draws intersections and dead ends.
func WithNodes() Option { return func(r *renderer) { r.nodes = true } }

// WithStreamlines overlays the raw traced streamlines.
func WithStreamlines() Option { return func(r *renderer) { r.streamlines = true } }

// transform maps world coordinates to image coordinates.
type transform struct {
	minX, maxY float64
	scale      float64
}

func (t transform) apply(p orb.Point) (float64, float64) {
	return (p[0] - t.minX) * t.scale, (t.maxY - p[1]) * t.scale
}

// Render draws the document.
func Render(doc citymap.Document, opts ...Option) []byte {
	r := renderer{width: DefaultWidth, blocks: true}
	for _, opt := range opts {
		opt(&r)
	}

	b := doc.Bounds.Bound()
	w, h := b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	t := transform{minX: b.Min[0], maxY: b.Max[1], scale: r.width / w}
	height := math.Round(h * t.scale)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.0f %.0f" width="%.0f" height="%.0f">`+"\n",
		r.width, height, r.width, height)
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", styleCSS)
	fmt.Fprintf(&buf, `  <rect class="bg" x="0" y="0" width="%.0f" height="%.0f"/>`+"\n", r.width, height)

	if r.blocks {
		buf.WriteString(`  <g id="blocks">` + "\n")
		for _, blk := range doc.Blocks {
			fmt.Fprintf(&buf, `    <path id="block-%d" class="block" d="%s"/>`+"\n", blk.ID, path(t, blk.Polygon, true))
		}
		buf.WriteString("  </g>\n")
	}

	if r.lots {
		buf.WriteString(`  <g id="lots">` + "\n")
		for _, l := range doc.Lots {
			class := "lot"
			if l.Undersized {
				class += " undersized"
			}
			fmt.Fprintf(&buf, `    <path id="lot-%d" class="%s" d="%s"/>`+"\n", l.ID, class, path(t, l.Polygon, true))
		}
		buf.WriteString("  </g>\n")
	}

	if r.streamlines {
		buf.WriteString(`  <g id="streamlines">` + "\n")
		for _, s := range doc.Streamlines {
			fmt.Fprintf(&buf, `    <path class="streamline %s" d="%s"/>`+"\n", s.Kind, path(t, s.Points, false))
		}
		buf.WriteString("  </g>\n")
	}

	renderRoads(&buf, t, doc)

	if r.nodes {
		buf.WriteString(`  <g id="nodes">` + "\n")
		for _, n := range doc.Nodes {
			if n.Role == roadgraph.Through.String() {
				continue
			}
			x, y := t.apply(n.Pos)
			fmt.Fprintf(&buf, `    <circle class="node %s" cx="%.2f" cy="%.2f" r="2.5"/>`+"\n", n.Role, x, y)
		}
		buf.WriteString("  </g>\n")
	}

	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

// renderRoads draws lower classes first so highways stay on top.
func renderRoads(buf *bytes.Buffer, t transform, doc citymap.Document) {
	buf.WriteString(`  <g id="roads">` + "\n")
	for class := roadgraph.Alley; class >= roadgraph.Highway; class-- {
		for _, e := range doc.Edges {
			if e.Class != class || e.From >= len(doc.Nodes) || e.To >= len(doc.Nodes) {
				continue
			}
			ls := make(orb.LineString, 0, len(e.Shape)+2)
			ls = append(ls, doc.Nodes[e.From].Pos)
			ls = append(ls, e.Shape...)
			ls = append(ls, doc.Nodes[e.To].Pos)
			fmt.Fprintf(buf, `    <path id="edge-%d" class="road %s" d="%s"/>`+"\n", e.ID, class, path(t, ls, false))
		}
	}
	buf.WriteString("  </g>\n")
}

func path(t transform, pts orb.LineString, closed bool) string {
	var buf bytes.Buffer
	for i, p := range pts {
		x, y := t.apply(p)
		if i == 0 {
			fmt.Fprintf(&buf, "M%.2f,%.2f", x, y)
		} else {
			fmt.Fprintf(&buf, " L%.2f,%.2f", x, y)
		}
	}
	if closed && len(pts) > 0 {
		buf.WriteString(" Z")
	}
	return buf.String()
}
