package citymap

import (
	"errors"
	"fmt"
	"slices"

	"github.com/paulmach/orb"

	"github.com/matzehuels/citygen/pkg/blocks"
	"github.com/matzehuels/citygen/pkg/geom"
	"github.com/matzehuels/citygen/pkg/lots"
	"github.com/matzehuels/citygen/pkg/roadgraph"
	"github.com/matzehuels/citygen/pkg/streamline"
)

// FormatVersion is the current document format version.
const FormatVersion = 1

// ErrUnsupportedVersion is returned when a document was written by a newer
// format version.
var ErrUnsupportedVersion = errors.New("unsupported document version")

// =============================================================================
// Document - Serialized City
// =============================================================================

// Document is the canonical serialization of a generated city.
type Document struct {
	Version     int          `json:"version" bson:"version"`
	RunID       string       `json:"run_id,omitempty" bson:"run_id,omitempty"`
	Seed        uint64       `json:"seed" bson:"seed"`
	Bounds      Bounds       `json:"bounds" bson:"bounds"`
	Streamlines []Streamline `json:"streamlines,omitempty" bson:"streamlines,omitempty"`
	Nodes       []Node       `json:"nodes" bson:"nodes"`
	Edges       []Edge       `json:"edges" bson:"edges"`
	Blocks      []Block      `json:"blocks" bson:"blocks"`
	Lots        []Lot        `json:"lots" bson:"lots"`
	Diagnostics Diagnostics  `json:"diagnostics" bson:"diagnostics"`
}

// Bounds is the map extent.
type Bounds struct {
	Min orb.Point `json:"min" bson:"min"`
	Max orb.Point `json:"max" bson:"max"`
}

// Bound converts to an orb.Bound.
func (b Bounds) Bound() orb.Bound { return orb.Bound{Min: b.Min, Max: b.Max} }

// BoundsOf converts an orb.Bound.
func BoundsOf(b orb.Bound) Bounds { return Bounds{Min: b.Min, Max: b.Max} }

// Streamline is a traced polyline.
type Streamline struct {
	ID     int            `json:"id" bson:"id"`
	Kind   string         `json:"kind" bson:"kind"`
	Points orb.LineString `json:"points" bson:"points"`
}

// Node is a road graph vertex.
type Node struct {
	ID   int       `json:"id" bson:"id"`
	Pos  orb.Point `json:"pos" bson:"pos"`
	Role string    `json:"role" bson:"role"`
}

// Edge is a road segment between two nodes. Shape holds the intermediate
// points only.
type Edge struct {
	ID     int             `json:"id" bson:"id"`
	From   int             `json:"from" bson:"from"`
	To     int             `json:"to" bson:"to"`
	Class  roadgraph.Class `json:"class" bson:"class"`
	Shape  orb.LineString  `json:"shape,omitempty" bson:"shape,omitempty"`
	Length float64         `json:"length" bson:"length"`
}

// Block is an enclosed face of the road graph.
type Block struct {
	ID      int            `json:"id" bson:"id"`
	Nodes   []int          `json:"nodes" bson:"nodes"`
	Polygon orb.LineString `json:"polygon" bson:"polygon"`
	Area    float64        `json:"area" bson:"area"`
}

// Lot is a terminal piece of a block.
type Lot struct {
	ID         int            `json:"id" bson:"id"`
	BlockID    int            `json:"block_id" bson:"block_id"`
	Polygon    orb.LineString `json:"polygon" bson:"polygon"`
	Area       float64        `json:"area" bson:"area"`
	Undersized bool           `json:"undersized,omitempty" bson:"undersized,omitempty"`
	Zone       string         `json:"zone" bson:"zone"`
}

// Diagnostics reports the non-fatal conditions met during a run. The
// top-level counters summarize the per-stage statistics.
type Diagnostics struct {
	DiscardedStreamlines   int `json:"discarded_streamlines" bson:"discarded_streamlines"`
	DegenerateTerminations int `json:"degenerate_terminations" bson:"degenerate_terminations"`
	TopologyAnomalies      int `json:"topology_anomalies" bson:"topology_anomalies"`
	SliverLots             int `json:"sliver_lots" bson:"sliver_lots"`

	Tracing streamline.Stats     `json:"tracing" bson:"tracing"`
	Graph   roadgraph.BuildStats `json:"graph" bson:"graph"`
	Blocks  blocks.Stats         `json:"blocks" bson:"blocks"`
	Lots    lots.Stats           `json:"lots" bson:"lots"`
}

// =============================================================================
// Core Types -> Document
// =============================================================================

// FromGraph converts a road graph into node and edge lists sorted by id.
func FromGraph(g *roadgraph.Graph) ([]Node, []Edge) {
	nodes := make([]Node, 0, g.NodeCount())
	for _, n := range g.Nodes() {
		nodes = append(nodes, Node{ID: int(n.ID), Pos: n.Pos, Role: g.Role(n.ID).String()})
	}
	edges := make([]Edge, 0, g.EdgeCount())
	for _, e := range g.Edges() {
		edges = append(edges, Edge{
			ID:     int(e.ID),
			From:   int(e.From),
			To:     int(e.To),
			Class:  e.Class,
			Shape:  slices.Clone(e.Shape),
			Length: e.Length,
		})
	}
	return nodes, edges
}

// FromBlocks converts extracted blocks.
func FromBlocks(bs []blocks.Block) []Block {
	out := make([]Block, len(bs))
	for i, b := range bs {
		ids := make([]int, len(b.Nodes))
		for j, n := range b.Nodes {
			ids[j] = int(n)
		}
		out[i] = Block{ID: b.ID, Nodes: ids, Polygon: orb.LineString(slices.Clone(b.Polygon)), Area: b.Area}
	}
	return out
}

// FromLots converts subdivided lots.
func FromLots(ls []lots.Lot) []Lot {
	out := make([]Lot, len(ls))
	for i, l := range ls {
		out[i] = Lot{
			ID:         l.ID,
			BlockID:    l.BlockID,
			Polygon:    orb.LineString(slices.Clone(l.Polygon)),
			Area:       l.Area,
			Undersized: l.Undersized,
			Zone:       string(l.Zone),
		}
	}
	return out
}

// FromStreamlines converts traced streamlines.
func FromStreamlines(lines []streamline.Streamline) []Streamline {
	out := make([]Streamline, len(lines))
	for i, s := range lines {
		out[i] = Streamline{ID: s.ID, Kind: s.Kind.String(), Points: slices.Clone(s.Points)}
	}
	return out
}

// =============================================================================
// Document -> Core Types
// =============================================================================

// Check verifies the version and that node and edge ids are contiguous
// from zero.
func (d Document) Check() error {
	if d.Version > FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, d.Version)
	}
	for i, n := range d.Nodes {
		if n.ID != i {
			return fmt.Errorf("node %d: ids must be contiguous from 0, got %d", i, n.ID)
		}
	}
	for i, e := range d.Edges {
		if e.ID != i {
			return fmt.Errorf("edge %d: ids must be contiguous from 0, got %d", i, e.ID)
		}
	}
	return nil
}

// Graph rebuilds the road graph with the document's ids.
func (d Document) Graph() (*roadgraph.Graph, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}
	g := roadgraph.New()
	for _, n := range d.Nodes {
		g.AddNode(n.Pos)
	}
	for _, e := range d.Edges {
		if _, err := g.AddEdge(roadgraph.NodeID(e.From), roadgraph.NodeID(e.To), e.Class, e.Shape); err != nil {
			return nil, fmt.Errorf("edge %d: %w", e.ID, err)
		}
	}
	return g, nil
}

// BlockList converts the document's blocks back. Edge lists are not
// serialized and come back empty.
func (d Document) BlockList() []blocks.Block {
	out := make([]blocks.Block, len(d.Blocks))
	for i, b := range d.Blocks {
		ids := make([]roadgraph.NodeID, len(b.Nodes))
		for j, n := range b.Nodes {
			ids[j] = roadgraph.NodeID(n)
		}
		out[i] = blocks.Block{ID: b.ID, Nodes: ids, Polygon: geom.Polygon(slices.Clone(b.Polygon)), Area: b.Area}
	}
	return out
}

// LotList converts the document's lots back.
func (d Document) LotList() []lots.Lot {
	out := make([]lots.Lot, len(d.Lots))
	for i, l := range d.Lots {
		out[i] = lots.Lot{
			ID:         l.ID,
			BlockID:    l.BlockID,
			Polygon:    geom.Polygon(slices.Clone(l.Polygon)),
			Area:       l.Area,
			Undersized: l.Undersized,
			Zone:       lots.Zone(l.Zone),
		}
	}
	return out
}

// StreamlineList converts the document's streamlines back.
func (d Document) StreamlineList() ([]streamline.Streamline, error) {
	out := make([]streamline.Streamline, len(d.Streamlines))
	for i, s := range d.Streamlines {
		kind, err := streamline.ParseKind(s.Kind)
		if err != nil {
			return nil, fmt.Errorf("streamline %d: %w", s.ID, err)
		}
		out[i] = streamline.Streamline{ID: s.ID, Kind: kind, Points: slices.Clone(s.Points)}
		if len(s.Points) > 0 {
			out[i].Seed = s.Points[0]
		}
	}
	return out, nil
}

// Summary returns aggregate counts for display.
func (d Document) Summary() Summary {
	s := Summary{Nodes: len(d.Nodes), Edges: len(d.Edges), Blocks: len(d.Blocks), Lots: len(d.Lots)}
	for _, e := range d.Edges {
		s.RoadLength += e.Length
	}
	for _, b := range d.Blocks {
		s.BlockArea += b.Area
	}
	for _, l := range d.Lots {
		if l.Undersized {
			s.UndersizedLots++
		}
	}
	return s
}

// Summary holds aggregate document counts.
type Summary struct {
	Nodes          int     `json:"nodes"`
	Edges          int     `json:"edges"`
	Blocks         int     `json:"blocks"`
	Lots           int     `json:"lots"`
	UndersizedLots int     `json:"undersized_lots"`
	RoadLength     float64 `json:"road_length"`
	BlockArea      float64 `json:"block_area"`
}
