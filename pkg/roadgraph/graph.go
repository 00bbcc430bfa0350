package roadgraph

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/citygen/pkg/geom"
)

var (
	// ErrUnknownNode is returned by [Graph.AddEdge] when an endpoint does
	// not exist in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrZeroLengthEdge is returned by [Graph.AddEdge] when both endpoints
	// sit at the same position. Road edges always have positive length.
	ErrZeroLengthEdge = errors.New("zero-length edge")

	// ErrDuplicateEdge is returned by [Graph.Validate] when two edges join
	// the same ordered node pair with the same shape.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrInvalidEdgeEndpoint is returned by [Graph.Validate] when an edge
	// references a node that does not exist or adjacency is out of sync.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")
)

// NodeID identifies a node. Ids are stable for the lifetime of a graph.
type NodeID int

// EdgeID identifies an edge.
type EdgeID int

// Role is the degree-derived function of a node.
type Role int

const (
	// Isolated nodes have no edges; finished graphs contain none.
	Isolated Role = iota
	// DeadEnd nodes have one edge.
	DeadEnd
	// Through nodes have two edges.
	Through
	// Intersection nodes have three or more edges.
	Intersection
)

// String returns the snake_case role name.
func (r Role) String() string {
	switch r {
	case Isolated:
		return "isolated"
	case DeadEnd:
		return "dead_end"
	case Through:
		return "through"
	case Intersection:
		return "intersection"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// RoleForDegree maps a node degree to its role.
func RoleForDegree(d int) Role {
	switch {
	case d <= 0:
		return Isolated
	case d == 1:
		return DeadEnd
	case d == 2:
		return Through
	}
	return Intersection
}

// Node is a graph vertex: a road junction, a dead end or a point where
// two edges of different class meet.
type Node struct {
	ID  NodeID
	Pos orb.Point
}

// Edge joins two nodes. Shape holds the intermediate points of the road
// centerline, excluding the endpoints.
//
// An edge is undirected; From and To only fix the order of Shape.
type Edge struct {
	ID    EdgeID
	From  NodeID
	To    NodeID
	Class Class
	Shape orb.LineString
	// Length is the planar length of the full centerline, endpoints
	// included.
	Length float64
}

// Other returns the endpoint of e opposite n.
func (e Edge) Other(n NodeID) NodeID {
	if e.From == n {
		return e.To
	}
	return e.From
}

// IsLoop reports whether both endpoints are the same node.
func (e Edge) IsLoop() bool { return e.From == e.To }

// Graph is a planar road network. Nodes and edges live in id-keyed arenas;
// edges refer to nodes by id only.
//
// The zero value is not usable; use New. Graph is not safe for concurrent
// mutation; a finished graph may be read from many goroutines.
type Graph struct {
	nodes    map[NodeID]*Node
	edges    map[EdgeID]*Edge
	adj      map[NodeID][]EdgeID
	nextNode NodeID
	nextEdge EdgeID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[NodeID]*Node),
		edges: make(map[EdgeID]*Edge),
		adj:   make(map[NodeID][]EdgeID),
	}
}

// AddNode creates a node at pos and returns its id.
func (g *Graph) AddNode(pos orb.Point) NodeID {
	id := g.nextNode
	g.nextNode++
	g.nodes[id] = &Node{ID: id, Pos: pos}
	return id
}

// AddEdge joins from and to. Shape is copied. Loops are allowed as long
// as the shape gives them positive length.
func (g *Graph) AddEdge(from, to NodeID, class Class, shape orb.LineString) (EdgeID, error) {
	a, ok := g.nodes[from]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownNode, from)
	}
	b, ok := g.nodes[to]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownNode, to)
	}
	e := &Edge{From: from, To: to, Class: class, Shape: slices.Clone(shape)}
	e.Length = planar.Length(g.polyline(a.Pos, e.Shape, b.Pos))
	if e.Length < geom.Epsilon || (from != to && geom.Dist(a.Pos, b.Pos) < geom.Epsilon) {
		return 0, ErrZeroLengthEdge
	}
	e.ID = g.nextEdge
	g.nextEdge++
	g.edges[e.ID] = e
	// Loops are listed twice so Degree counts both ends.
	g.adj[from] = append(g.adj[from], e.ID)
	g.adj[to] = append(g.adj[to], e.ID)
	return e.ID, nil
}

// RemoveEdge deletes an edge. Unknown ids are ignored.
func (g *Graph) RemoveEdge(id EdgeID) {
	e, ok := g.edges[id]
	if !ok {
		return
	}
	delete(g.edges, id)
	drop := func(n NodeID) {
		g.adj[n] = slices.DeleteFunc(g.adj[n], func(x EdgeID) bool { return x == id })
		if len(g.adj[n]) == 0 {
			delete(g.adj, n)
		}
	}
	drop(e.From)
	if e.To != e.From {
		drop(e.To)
	}
}

// RemoveNode deletes a node together with its incident edges.
func (g *Graph) RemoveNode(id NodeID) {
	for _, eid := range slices.Clone(g.adj[id]) {
		g.RemoveEdge(eid)
	}
	delete(g.nodes, id)
	delete(g.adj, id)
}

func (g *Graph) polyline(a orb.Point, shape orb.LineString, b orb.Point) orb.LineString {
	ls := make(orb.LineString, 0, len(shape)+2)
	ls = append(ls, a)
	ls = append(ls, shape...)
	return append(ls, b)
}

// Polyline returns the full centerline of an edge, from From to To.
func (g *Graph) Polyline(id EdgeID) orb.LineString {
	e, ok := g.edges[id]
	if !ok {
		return nil
	}
	return g.polyline(g.nodes[e.From].Pos, e.Shape, g.nodes[e.To].Pos)
}

// Node returns the node with the given id.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Edge returns the edge with the given id.
func (g *Graph) Edge(id EdgeID) (Edge, bool) {
	e, ok := g.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// Nodes returns all nodes ordered by id.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, id := range slices.Sorted(maps.Keys(g.nodes)) {
		out = append(out, *g.nodes[id])
	}
	return out
}

// Edges returns all edges ordered by id.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, id := range slices.Sorted(maps.Keys(g.edges)) {
		out = append(out, *g.edges[id])
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Incident returns the ids of edges touching n, ordered by id. A loop
// appears twice.
func (g *Graph) Incident(n NodeID) []EdgeID {
	out := slices.Clone(g.adj[n])
	slices.Sort(out)
	return out
}

// Degree returns the number of edge ends at n; loops count twice.
func (g *Graph) Degree(n NodeID) int { return len(g.adj[n]) }

// Role returns the degree-derived role of n.
func (g *Graph) Role(n NodeID) Role { return RoleForDegree(g.Degree(n)) }

// Neighbors returns the distinct nodes adjacent to n, ordered by id.
func (g *Graph) Neighbors(n NodeID) []NodeID {
	var out []NodeID
	for _, eid := range g.adj[n] {
		out = append(out, g.edges[eid].Other(n))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Components returns the connected components as sorted node id lists,
// ordered by their smallest id.
func (g *Graph) Components() [][]NodeID {
	seen := make(map[NodeID]bool, len(g.nodes))
	var comps [][]NodeID
	for _, start := range slices.Sorted(maps.Keys(g.nodes)) {
		if seen[start] {
			continue
		}
		var comp []NodeID
		stack := []NodeID{start}
		seen[start] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, n)
			for _, m := range g.Neighbors(n) {
				if !seen[m] {
					seen[m] = true
					stack = append(stack, m)
				}
			}
		}
		slices.Sort(comp)
		comps = append(comps, comp)
	}
	return comps
}

// Clone returns a deep copy. Ids are preserved.
func (g *Graph) Clone() *Graph {
	c := New()
	c.nextNode, c.nextEdge = g.nextNode, g.nextEdge
	for id, n := range g.nodes {
		cp := *n
		c.nodes[id] = &cp
	}
	for id, e := range g.edges {
		cp := *e
		cp.Shape = slices.Clone(e.Shape)
		c.edges[id] = &cp
	}
	for id, list := range g.adj {
		c.adj[id] = slices.Clone(list)
	}
	return c
}

// Validate checks structural invariants: edge endpoints exist, adjacency
// mirrors the edge set, no edge has zero length and no two edges share
// the same ordered endpoints and shape.
func (g *Graph) Validate() error {
	seen := make(map[string]EdgeID, len(g.edges))
	for _, e := range g.Edges() {
		a, okA := g.nodes[e.From]
		b, okB := g.nodes[e.To]
		if !okA || !okB {
			return fmt.Errorf("%w: edge %d", ErrInvalidEdgeEndpoint, e.ID)
		}
		if !slices.Contains(g.adj[e.From], e.ID) || !slices.Contains(g.adj[e.To], e.ID) {
			return fmt.Errorf("%w: edge %d missing from adjacency", ErrInvalidEdgeEndpoint, e.ID)
		}
		if !e.IsLoop() && geom.Dist(a.Pos, b.Pos) < geom.Epsilon {
			return fmt.Errorf("%w: edge %d", ErrZeroLengthEdge, e.ID)
		}
		key := fmt.Sprintf("%d>%d:%v", e.From, e.To, e.Shape)
		if prev, dup := seen[key]; dup {
			return fmt.Errorf("%w: edges %d and %d", ErrDuplicateEdge, prev, e.ID)
		}
		seen[key] = e.ID
	}
	for n, list := range g.adj {
		if _, ok := g.nodes[n]; !ok {
			return fmt.Errorf("%w: adjacency for missing node %d", ErrInvalidEdgeEndpoint, n)
		}
		for _, eid := range list {
			if _, ok := g.edges[eid]; !ok {
				return fmt.Errorf("%w: node %d lists missing edge %d", ErrInvalidEdgeEndpoint, n, eid)
			}
		}
	}
	return nil
}

// Summary holds aggregate graph statistics. DeadEnds and Intersections
// count nodes by [Role]; TotalLength sums edge lengths.
type Summary struct {
	Nodes         int     `json:"nodes"`
	Edges         int     `json:"edges"`
	DeadEnds      int     `json:"dead_ends"`
	Intersections int     `json:"intersections"`
	Components    int     `json:"components"`
	TotalLength   float64 `json:"total_length"`
}

// Summarize computes aggregate statistics.
func (g *Graph) Summarize() Summary {
	s := Summary{Nodes: len(g.nodes), Edges: len(g.edges), Components: len(g.Components())}
	for id := range g.nodes {
		switch g.Role(id) {
		case DeadEnd:
			s.DeadEnds++
		case Intersection:
			s.Intersections++
		}
	}
	for _, e := range g.edges {
		s.TotalLength += e.Length
	}
	return s
}
