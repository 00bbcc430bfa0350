// Package blocks extracts city blocks, the bounded faces of a planar road
// graph.
//
// Faces are traced with half-edges: every edge contributes one half-edge
// per direction, each node orders its outgoing half-edges by angle, and a
// face walk leaves each node along the half-edge immediately clockwise
// from the one it arrived on. Bounded faces come out counter-clockwise;
// the unbounded face of every connected component comes out clockwise and
// is discarded.
package blocks

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/paulmach/orb"

	"github.com/matzehuels/citygen/pkg/geom"
	"github.com/matzehuels/citygen/pkg/roadgraph"
)

// Block is one bounded face of the road graph.
//
// Blocks are numbered in extraction order, which follows half-edge order
// and is stable for a given graph.
type Block struct {
	ID int
	// Nodes lists the boundary nodes in walk order, dead-end nodes
	// included.
	Nodes []roadgraph.NodeID
	// Edges lists the distinct boundary edges in walk order.
	Edges []roadgraph.EdgeID
	// Polygon is the counter-clockwise outline with dead-end spikes
	// removed. It is always simple.
	Polygon geom.Polygon
	// Area is the area of Polygon, at least Options.MinArea.
	Area float64
}

// AnomalyKind classifies a face that could not become a block.
type AnomalyKind int

const (
	// SelfLoop faces use an edge that starts and ends at the same node.
	SelfLoop AnomalyKind = iota
	// Lens faces are bounded by fewer than three distinct nodes.
	Lens
	// ZeroArea faces enclose nothing but are not the outline of a tree.
	ZeroArea
	// NotSimple faces touch or cross themselves after spike removal.
	NotSimple
)

func (k AnomalyKind) String() string {
	switch k {
	case SelfLoop:
		return "self_loop"
	case Lens:
		return "lens"
	case ZeroArea:
		return "zero_area"
	case NotSimple:
		return "not_simple"
	}
	return fmt.Sprintf("anomaly(%d)", int(k))
}

// Anomaly records a face skipped because of its topology.
type Anomaly struct {
	Kind  AnomalyKind
	Nodes []roadgraph.NodeID
}

// Options controls extraction.
type Options struct {
	// MinArea discards faces smaller than this as noise.
	MinArea float64
}

// Stats counts faces by outcome. Every traced face lands in exactly one of
// OuterFaces, Small, Anomalies or Blocks.
type Stats struct {
	Faces      int `json:"faces"`
	OuterFaces int `json:"outer_faces"`
	Small      int `json:"small"`
	Anomalies  int `json:"anomalies"`
	Blocks     int `json:"blocks"`
}

// Result is the output of Extract. Anomalies are reported, not fatal:
// the rest of the graph still yields blocks.
type Result struct {
	Blocks    []Block
	Anomalies []Anomaly
	Stats     Stats
}

type halfEdge struct {
	edge     roadgraph.EdgeID
	rev      bool
	from, to roadgraph.NodeID
	angle    float64
	loop     bool
}

// Extract traces every face of g and returns the bounded ones that pass
// the topology and area checks, in discovery order.
func Extract(g *roadgraph.Graph, opts Options) Result {
	hs, out, pos := halfEdges(g)
	next := func(h int) int {
		twin := h ^ 1
		list := out[hs[h].to]
		i := pos[twin]
		return list[(i-1+len(list))%len(list)]
	}

	var res Result
	visited := make([]bool, len(hs))
	for start := range hs {
		if visited[start] {
			continue
		}
		var face []int
		for cur := start; !visited[cur]; cur = next(cur) {
			visited[cur] = true
			face = append(face, cur)
		}
		res.Stats.Faces++
		classify(g, hs, face, opts, &res)
	}
	res.Stats.Blocks = len(res.Blocks)
	return res
}

// halfEdges returns the half-edges (2k forward, 2k+1 reverse for the k-th
// edge in id order), the angle-sorted outgoing lists per node and each
// half-edge's position in its list.
func halfEdges(g *roadgraph.Graph) ([]halfEdge, map[roadgraph.NodeID][]int, []int) {
	edges := g.Edges()
	hs := make([]halfEdge, 0, 2*len(edges))
	for _, e := range edges {
		line := g.Polyline(e.ID)
		n := len(line)
		hs = append(hs,
			halfEdge{edge: e.ID, from: e.From, to: e.To, loop: e.IsLoop(),
				angle: geom.Angle(geom.Sub(line[1], line[0]))},
			halfEdge{edge: e.ID, rev: true, from: e.To, to: e.From, loop: e.IsLoop(),
				angle: geom.Angle(geom.Sub(line[n-2], line[n-1]))},
		)
	}

	out := make(map[roadgraph.NodeID][]int)
	for i, h := range hs {
		out[h.from] = append(out[h.from], i)
	}
	pos := make([]int, len(hs))
	for _, list := range out {
		slices.SortFunc(list, func(a, b int) int {
			if c := cmp.Compare(hs[a].angle, hs[b].angle); c != 0 {
				return c
			}
			if c := cmp.Compare(hs[a].edge, hs[b].edge); c != 0 {
				return c
			}
			return cmp.Compare(a, b)
		})
		for i, h := range list {
			pos[h] = i
		}
	}
	return hs, out, pos
}

func classify(g *roadgraph.Graph, hs []halfEdge, face []int, opts Options, res *Result) {
	var poly geom.Polygon
	var nodes []roadgraph.NodeID
	var edges []roadgraph.EdgeID
	uses := make(map[roadgraph.EdgeID]int, len(face))
	hasLoop := false
	for _, h := range face {
		he := hs[h]
		line := g.Polyline(he.edge)
		if he.rev {
			line = reversed(line)
		}
		poly = append(poly, line[:len(line)-1]...)
		if !slices.Contains(nodes, he.from) {
			nodes = append(nodes, he.from)
		}
		if uses[he.edge] == 0 {
			edges = append(edges, he.edge)
		}
		uses[he.edge]++
		hasLoop = hasLoop || he.loop
	}

	area := poly.SignedArea()
	b := poly.Bound()
	tol := geom.Epsilon * math.Max(1, (b.Max[0]-b.Min[0])*(b.Max[1]-b.Min[1]))
	switch {
	case area < -tol:
		res.Stats.OuterFaces++
		return
	case area <= tol:
		if isTreeWalk(uses) {
			res.Stats.OuterFaces++
			return
		}
		res.anomaly(ZeroArea, nodes)
		return
	case hasLoop:
		res.anomaly(SelfLoop, nodes)
		return
	case len(nodes) < 3:
		res.anomaly(Lens, nodes)
		return
	}

	clean := removeSpikes(poly)
	if !clean.IsSimple() {
		res.anomaly(NotSimple, nodes)
		return
	}
	a := clean.Area()
	if a < opts.MinArea {
		res.Stats.Small++
		return
	}
	res.Blocks = append(res.Blocks, Block{
		ID:      len(res.Blocks),
		Nodes:   nodes,
		Edges:   edges,
		Polygon: clean.EnsureCCW(),
		Area:    a,
	})
}

func (r *Result) anomaly(kind AnomalyKind, nodes []roadgraph.NodeID) {
	r.Anomalies = append(r.Anomalies, Anomaly{Kind: kind, Nodes: nodes})
	r.Stats.Anomalies++
}

// isTreeWalk reports whether the walk traversed every edge in both
// directions, which is the outline of a tree component.
func isTreeWalk(uses map[roadgraph.EdgeID]int) bool {
	for _, n := range uses {
		if n != 2 {
			return false
		}
	}
	return true
}

func reversed(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[len(ls)-1-i] = p
	}
	return out
}

// removeSpikes strips dead-end excursions: any vertex whose neighbours
// coincide is removed together with the returning duplicate, until none
// remain.
func removeSpikes(p geom.Polygon) geom.Polygon {
	const eps = 1e-9
	p = p.Clean(eps)
	for len(p) >= 3 {
		n := len(p)
		spike := -1
		for i := range p {
			if geom.Equal(p[(i+n-1)%n], p[(i+1)%n], eps) {
				spike = i
				break
			}
		}
		if spike < 0 {
			break
		}
		drop := (spike + 1) % n
		out := make(geom.Polygon, 0, n-2)
		for i, v := range p {
			if i != spike && i != drop {
				out = append(out, v)
			}
		}
		p = out.Clean(eps)
	}
	return p
}
