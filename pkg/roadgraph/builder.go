package roadgraph

import (
	"cmp"
	"math"
	"slices"

	"github.com/paulmach/orb"

	"github.com/matzehuels/citygen/pkg/geom"
	"github.com/matzehuels/citygen/pkg/spatial"
)

// Polyline is one input road centerline.
type Polyline struct {
	Points orb.LineString
	Class  Class
}

// BuildOptions controls graph construction.
type BuildOptions struct {
	// SnapRadius merges anchors and vertices closer than this into one node.
	SnapRadius float64
	// CellSize is the spatial index cell size; it is raised to SnapRadius.
	CellSize float64
	// MinEdgeLength contracts edges whose endpoint distance is shorter.
	MinEdgeLength float64
	// PruneStubs removes dead-end edges shorter than StubLength.
	PruneStubs bool
	StubLength float64
}

// BuildStats counts the repairs made while building.
type BuildStats struct {
	Intersections     int `json:"intersections"`
	Projections       int `json:"projections"`
	SnappedPoints     int `json:"snapped_points"`
	EdgesCollapsed    int `json:"edges_collapsed"`
	StubsPruned       int `json:"stubs_pruned"`
	DuplicateEdges    int `json:"duplicate_edges"`
	SelfLoopsSplit    int `json:"self_loops_split"`
	ZeroLengthSkipped int `json:"zero_length_skipped"`
}

// anchor is a position along a polyline that must become a node.
type anchor struct {
	seg int
	t   float64
	pt  orb.Point
}

type segRef struct {
	line, idx int
}

type builder struct {
	opts  BuildOptions
	lines []Polyline
	g     *Graph
	stats BuildStats

	anchors [][]anchor
	segs    []segRef
	segIdx  *spatial.Grid
	nodeIdx *spatial.Grid
}

// Build converts polylines into a planar graph. Lines are processed in
// slice order, which makes the result a pure function of the input.
func Build(lines []Polyline, opts BuildOptions) (*Graph, BuildStats) {
	cell := math.Max(opts.CellSize, opts.SnapRadius)
	b := &builder{
		opts:    opts,
		g:       New(),
		segIdx:  spatial.NewGrid(cell),
		nodeIdx: spatial.NewGrid(math.Max(opts.SnapRadius, 1)),
	}
	for _, l := range lines {
		pts := dedupe(l.Points)
		if len(pts) < 2 {
			continue
		}
		b.lines = append(b.lines, Polyline{Points: pts, Class: l.Class})
	}
	b.anchors = make([][]anchor, len(b.lines))

	b.indexSegments()
	b.intersect()
	b.project()
	paths := b.snap()
	for i, path := range paths {
		b.emit(path, b.lines[i].Class)
	}
	b.collapse()
	if opts.PruneStubs {
		b.prune()
	}
	return b.compact(), b.stats
}

func dedupe(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, 0, len(ls))
	for _, p := range ls {
		if len(out) > 0 && geom.Dist(out[len(out)-1], p) < geom.Epsilon {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (b *builder) indexSegments() {
	for li, l := range b.lines {
		last := len(l.Points) - 2
		b.anchors[li] = append(b.anchors[li],
			anchor{seg: 0, t: 0, pt: l.Points[0]},
			anchor{seg: last, t: 1, pt: l.Points[last+1]},
		)
		for i := 0; i+1 < len(l.Points); i++ {
			id := len(b.segs)
			b.segs = append(b.segs, segRef{line: li, idx: i})
			b.segIdx.InsertBound(id, geom.SegmentBound(l.Points[i], l.Points[i+1]))
		}
	}
}

func (b *builder) segment(id int) (orb.Point, orb.Point) {
	s := b.segs[id]
	pts := b.lines[s.line].Points
	return pts[s.idx], pts[s.idx+1]
}

// intersect inserts an anchor on both lines at every segment crossing.
func (b *builder) intersect() {
	for i := range b.segs {
		a1, a2 := b.segment(i)
		si := b.segs[i]
		for _, j := range b.segIdx.Query(geom.SegmentBound(a1, a2)) {
			if j <= i {
				continue
			}
			sj := b.segs[j]
			if si.line == sj.line && absInt(si.idx-sj.idx) <= 1 {
				continue
			}
			b1, b2 := b.segment(j)
			x, ok := geom.SegmentIntersection(a1, a2, b1, b2)
			if !ok {
				continue
			}
			b.stats.Intersections++
			b.anchors[si.line] = append(b.anchors[si.line], anchor{seg: si.idx, t: x.TA, pt: x.Point})
			b.anchors[sj.line] = append(b.anchors[sj.line], anchor{seg: sj.idx, t: x.TB, pt: x.Point})
		}
	}
}

// project drops each line endpoint onto the nearest segment of another
// line within the snap radius.
func (b *builder) project() {
	r := b.opts.SnapRadius
	if r <= 0 {
		return
	}
	for li, l := range b.lines {
		for _, p := range []orb.Point{l.Points[0], l.Points[len(l.Points)-1]} {
			best, bestSeg := math.Inf(1), -1
			var bestPt orb.Point
			var bestT float64
			for _, id := range b.segIdx.Near(p, r) {
				if b.segs[id].line == li {
					continue
				}
				s1, s2 := b.segment(id)
				q, t := geom.ClosestOnSegment(p, s1, s2)
				if d := geom.Dist(p, q); d <= r && d < best {
					best, bestSeg, bestPt, bestT = d, id, q, t
				}
			}
			if bestSeg < 0 {
				continue
			}
			s := b.segs[bestSeg]
			b.anchors[s.line] = append(b.anchors[s.line], anchor{seg: s.idx, t: bestT, pt: bestPt})
			b.stats.Projections++
		}
	}
}

// nearestNode returns the closest node within the snap radius; ties keep
// the lowest id.
func (b *builder) nearestNode(p orb.Point) (NodeID, bool) {
	r := b.opts.SnapRadius + geom.Epsilon
	best, found := math.Inf(1), NodeID(-1)
	for _, id := range b.nodeIdx.Near(p, r) {
		n := b.g.nodes[NodeID(id)]
		if d := geom.Dist(p, n.Pos); d <= r && d < best {
			best, found = d, n.ID
		}
	}
	return found, found >= 0
}

// stop is one entry of a snapped path: either a node or a shape point.
type stop struct {
	node  NodeID
	pt    orb.Point
	shape bool
}

// item is an anchor or interior vertex of a line, ordered by segment and
// parameter.
type item struct {
	seg    int
	t      float64
	pt     orb.Point
	anchor bool
}

// snap turns anchors into nodes in canonical order, then walks each line
// emitting its node and shape point sequence.
func (b *builder) snap() [][]stop {
	items := make([][]item, len(b.lines))
	for li, l := range b.lines {
		list := make([]item, 0, len(b.anchors[li])+len(l.Points))
		for _, a := range b.anchors[li] {
			list = append(list, item{seg: a.seg, t: a.t, pt: a.pt, anchor: true})
		}
		for i := 1; i+1 < len(l.Points); i++ {
			list = append(list, item{seg: i, t: 0, pt: l.Points[i]})
		}
		slices.SortStableFunc(list, func(x, y item) int {
			if c := cmp.Compare(x.seg, y.seg); c != 0 {
				return c
			}
			return cmp.Compare(x.t, y.t)
		})
		items[li] = list
	}

	nodeOf := b.clusterAnchors(items)

	paths := make([][]stop, len(b.lines))
	for li, list := range items {
		var path []stop
		for k, it := range list {
			id := nodeOf[li][k]
			if id < 0 {
				if n, ok := b.nearestNode(it.pt); ok {
					id = n
					b.stats.SnappedPoints++
				}
			}
			if id < 0 {
				path = append(path, stop{pt: it.pt, shape: true})
				continue
			}
			if len(path) > 0 && !path[len(path)-1].shape && path[len(path)-1].node == id {
				continue
			}
			path = append(path, stop{node: id})
		}
		paths[li] = path
	}
	return paths
}

// clusterAnchors assigns a node to every anchor. Anchors within the snap
// radius of each other are unioned transitively, so a chain of close
// endpoints resolves to a single node even when its ends are further
// apart than the radius. Anchors are numbered in line order, then along
// each line; a cluster's node sits at its lowest-numbered anchor and nodes
// are created in that order. The result holds the node of each item, or
// -1 for interior vertices.
func (b *builder) clusterAnchors(items [][]item) [][]NodeID {
	type ref struct{ li, k int }
	var refs []ref
	var pts []orb.Point
	nodeOf := make([][]NodeID, len(items))
	for li, list := range items {
		nodeOf[li] = make([]NodeID, len(list))
		for k, it := range list {
			nodeOf[li][k] = -1
			if it.anchor {
				refs = append(refs, ref{li, k})
				pts = append(pts, it.pt)
			}
		}
	}

	r := b.opts.SnapRadius + geom.Epsilon
	idx := spatial.NewGrid(math.Max(b.opts.SnapRadius, 1))
	uf := newUnionFind[int]()
	for i, p := range pts {
		for _, j := range idx.Near(p, r) {
			if geom.Dist(p, pts[j]) <= r {
				uf.union(i, j)
			}
		}
		idx.InsertPoint(i, p)
	}

	nodes := make(map[int]NodeID)
	for i, rf := range refs {
		root := uf.find(i)
		id, ok := nodes[root]
		if ok {
			b.stats.SnappedPoints++
		} else {
			id = b.g.AddNode(pts[root])
			b.nodeIdx.InsertPoint(int(id), pts[root])
			nodes[root] = id
		}
		nodeOf[rf.li][rf.k] = id
	}
	return nodeOf
}

// emit links consecutive nodes of a path.
func (b *builder) emit(path []stop, class Class) {
	start := NodeID(-1)
	var shape orb.LineString
	for _, s := range path {
		if s.shape {
			if start >= 0 {
				shape = append(shape, s.pt)
			}
			continue
		}
		if start >= 0 {
			b.link(start, s.node, class, shape)
		}
		start, shape = s.node, nil
	}
}

// link adds an edge unless it has zero length or duplicates an existing
// edge between the same nodes. Loops are split into three edges at the
// shape points one and two thirds along.
func (b *builder) link(from, to NodeID, class Class, shape orb.LineString) {
	if from == to {
		if len(shape) < 2 {
			b.stats.ZeroLengthSkipped++
			return
		}
		k1, k2 := len(shape)/3, 2*len(shape)/3
		n1 := b.g.AddNode(shape[k1])
		n2 := b.g.AddNode(shape[k2])
		b.stats.SelfLoopsSplit++
		b.link(from, n1, class, shape[:k1])
		b.link(n1, n2, class, shape[k1+1:k2])
		b.link(n2, to, class, shape[k2+1:])
		return
	}

	a, c := b.g.nodes[from].Pos, b.g.nodes[to].Pos
	mid := geom.PointAlong(b.g.polyline(a, shape, c), 0.5)
	tol := math.Max(b.opts.SnapRadius, geom.Epsilon)
	for _, eid := range b.g.adj[from] {
		e := b.g.edges[eid]
		if e.Other(from) != to {
			continue
		}
		if geom.Dist(geom.PointAlong(b.g.Polyline(eid), 0.5), mid) <= tol {
			if class.Outranks(e.Class) {
				e.Class = class
			}
			b.stats.DuplicateEdges++
			return
		}
	}
	if _, err := b.g.AddEdge(from, to, class, shape); err != nil {
		b.stats.ZeroLengthSkipped++
	}
}

// collapse contracts edges whose chord is shorter than MinEdgeLength.
// Each pass unions the endpoints of all short edges into the lowest id
// and relinks every edge through the mapping, until a pass finds none.
func (b *builder) collapse() {
	if b.opts.MinEdgeLength <= 0 {
		return
	}
	for {
		uf := newUnionFind[NodeID]()
		short := make(map[EdgeID]bool)
		for _, e := range b.g.Edges() {
			if e.IsLoop() {
				continue
			}
			if geom.Dist(b.g.nodes[e.From].Pos, b.g.nodes[e.To].Pos) < b.opts.MinEdgeLength {
				uf.union(e.From, e.To)
				short[e.ID] = true
			}
		}
		if len(short) == 0 {
			return
		}

		edges := b.g.Edges()
		for _, e := range edges {
			b.g.RemoveEdge(e.ID)
		}
		for _, n := range b.g.Nodes() {
			if uf.find(n.ID) != n.ID {
				b.g.RemoveNode(n.ID)
			}
		}
		for _, e := range edges {
			from, to := uf.find(e.From), uf.find(e.To)
			if short[e.ID] {
				b.stats.EdgesCollapsed++
				continue
			}
			b.link(from, to, e.Class, e.Shape)
		}
	}
}

// prune removes short dead-end edges until none remain.
func (b *builder) prune() {
	for {
		removed := false
		for _, e := range b.g.Edges() {
			if e.IsLoop() || e.Length >= b.opts.StubLength {
				continue
			}
			if b.g.Degree(e.From) == 1 || b.g.Degree(e.To) == 1 {
				b.g.RemoveEdge(e.ID)
				b.stats.StubsPruned++
				removed = true
			}
		}
		if !removed {
			return
		}
	}
}

// compact drops isolated nodes and renumbers nodes and edges densely in
// creation order.
func (b *builder) compact() *Graph {
	out := New()
	ids := make(map[NodeID]NodeID, len(b.g.nodes))
	for _, n := range b.g.Nodes() {
		if b.g.Degree(n.ID) == 0 {
			continue
		}
		ids[n.ID] = out.AddNode(n.Pos)
	}
	for _, e := range b.g.Edges() {
		if _, err := out.AddEdge(ids[e.From], ids[e.To], e.Class, e.Shape); err != nil {
			b.stats.ZeroLengthSkipped++
		}
	}
	return out
}

// unionFind maps merged ids to their representative. The representative
// of a set is its lowest id.
type unionFind[K cmp.Ordered] struct {
	parent map[K]K
}

func newUnionFind[K cmp.Ordered]() *unionFind[K] {
	return &unionFind[K]{parent: make(map[K]K)}
}

func (u *unionFind[K]) find(n K) K {
	p, ok := u.parent[n]
	if !ok || p == n {
		return n
	}
	root := u.find(p)
	u.parent[n] = root
	return root
}

func (u *unionFind[K]) union(a, b K) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
