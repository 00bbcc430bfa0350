package blocks

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/citygen/pkg/roadgraph"
)

func mustEdge(t *testing.T, g *roadgraph.Graph, a, b roadgraph.NodeID, shape ...orb.Point) {
	t.Helper()
	if _, err := g.AddEdge(a, b, roadgraph.Minor, shape); err != nil {
		t.Fatal(err)
	}
}

func square(t *testing.T, g *roadgraph.Graph, x, y, s float64) []roadgraph.NodeID {
	t.Helper()
	ids := []roadgraph.NodeID{
		g.AddNode(orb.Point{x, y}),
		g.AddNode(orb.Point{x + s, y}),
		g.AddNode(orb.Point{x + s, y + s}),
		g.AddNode(orb.Point{x, y + s}),
	}
	for i := range ids {
		mustEdge(t, g, ids[i], ids[(i+1)%4])
	}
	return ids
}

func TestExtractLattice(t *testing.T) {
	var lines []roadgraph.Polyline
	for k := 0; k <= 4; k++ {
		var h, v orb.LineString
		for s := 0; s <= 20; s++ {
			h = append(h, orb.Point{float64(s * 10), float64(k * 50)})
			v = append(v, orb.Point{float64(k * 50), float64(s * 10)})
		}
		lines = append(lines, roadgraph.Polyline{Points: h, Class: roadgraph.Major})
		lines = append(lines, roadgraph.Polyline{Points: v, Class: roadgraph.Minor})
	}
	g, _ := roadgraph.Build(lines, roadgraph.BuildOptions{SnapRadius: 4, CellSize: 10})

	res := Extract(g, Options{MinArea: 100})
	if len(res.Blocks) != 16 {
		t.Fatalf("got %d blocks, want 16 (stats %+v)", len(res.Blocks), res.Stats)
	}
	if res.Stats.OuterFaces != 1 || res.Stats.Anomalies != 0 {
		t.Errorf("stats = %+v", res.Stats)
	}
	for _, b := range res.Blocks {
		if math.Abs(b.Area-2500) > 2500*0.2 {
			t.Errorf("block %d area %v outside 2500 +/- 20%%", b.ID, b.Area)
		}
		if !b.Polygon.IsSimple() || b.Polygon.SignedArea() <= 0 {
			t.Errorf("block %d polygon is not a simple counter-clockwise ring", b.ID)
		}
		if len(b.Nodes) != 4 || len(b.Edges) != 4 {
			t.Errorf("block %d has %d nodes and %d edges", b.ID, len(b.Nodes), len(b.Edges))
		}
	}
}

func TestExtractRemovesDeadEndSpike(t *testing.T) {
	g := roadgraph.New()
	ids := square(t, g, 0, 0, 100)
	e := g.AddNode(orb.Point{30, 30})
	mustEdge(t, g, ids[0], e)

	res := Extract(g, Options{MinArea: 1})
	if len(res.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1 (stats %+v)", len(res.Blocks), res.Stats)
	}
	b := res.Blocks[0]
	if math.Abs(b.Area-10000) > 1e-6 {
		t.Errorf("area = %v, want 10000", b.Area)
	}
	if len(b.Polygon) != 4 {
		t.Errorf("polygon has %d vertices, want 4: %v", len(b.Polygon), b.Polygon)
	}
	if len(b.Nodes) != 5 {
		t.Errorf("nodes = %v, want the dead end included", b.Nodes)
	}
}

func TestExtractDisconnected(t *testing.T) {
	g := roadgraph.New()
	square(t, g, 0, 0, 100)
	square(t, g, 500, 500, 50)

	res := Extract(g, Options{MinArea: 1})
	if len(res.Blocks) != 2 || res.Stats.OuterFaces != 2 {
		t.Fatalf("blocks = %d, stats = %+v", len(res.Blocks), res.Stats)
	}
	if res.Blocks[0].Area != 10000 || res.Blocks[1].Area != 2500 {
		t.Errorf("areas = %v, %v", res.Blocks[0].Area, res.Blocks[1].Area)
	}
}

func TestExtractTreeHasNoBlocks(t *testing.T) {
	g := roadgraph.New()
	a := g.AddNode(orb.Point{0, 0})
	b := g.AddNode(orb.Point{100, 0})
	c := g.AddNode(orb.Point{100, 100})
	mustEdge(t, g, a, b)
	mustEdge(t, g, b, c)

	res := Extract(g, Options{})
	if len(res.Blocks) != 0 || res.Stats.Anomalies != 0 || res.Stats.OuterFaces != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestExtractAnomalies(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T, g *roadgraph.Graph)
		want  AnomalyKind
	}{
		{
			name: "lens",
			build: func(t *testing.T, g *roadgraph.Graph) {
				a := g.AddNode(orb.Point{0, 0})
				b := g.AddNode(orb.Point{100, 0})
				mustEdge(t, g, a, b, orb.Point{50, 40})
				mustEdge(t, g, a, b, orb.Point{50, -40})
			},
			want: Lens,
		},
		{
			name: "self loop",
			build: func(t *testing.T, g *roadgraph.Graph) {
				a := g.AddNode(orb.Point{0, 0})
				mustEdge(t, g, a, a, orb.Point{100, 0}, orb.Point{100, 100})
			},
			want: SelfLoop,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := roadgraph.New()
			tt.build(t, g)
			res := Extract(g, Options{MinArea: 1})
			if len(res.Blocks) != 0 {
				t.Errorf("got %d blocks, want none", len(res.Blocks))
			}
			if len(res.Anomalies) != 1 || res.Anomalies[0].Kind != tt.want {
				t.Errorf("anomalies = %+v, want one %v", res.Anomalies, tt.want)
			}
		})
	}
}

func TestExtractMinArea(t *testing.T) {
	g := roadgraph.New()
	square(t, g, 0, 0, 10)
	res := Extract(g, Options{MinArea: 200})
	if len(res.Blocks) != 0 || res.Stats.Small != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}
