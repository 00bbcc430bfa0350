package citymap

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/matzehuels/citygen/pkg/blocks"
	"github.com/matzehuels/citygen/pkg/lots"
	"github.com/matzehuels/citygen/pkg/roadgraph"
	"github.com/matzehuels/citygen/pkg/streamline"
)

// squareDoc builds a document for a single 100x100 block split into lots.
func squareDoc(t *testing.T) Document {
	t.Helper()
	g := roadgraph.New()
	corners := []orb.Point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	ids := make([]roadgraph.NodeID, len(corners))
	for i, p := range corners {
		ids[i] = g.AddNode(p)
	}
	for i := range ids {
		shape := orb.LineString{}
		if i == 0 {
			shape = orb.LineString{{50, 0}}
		}
		if _, err := g.AddEdge(ids[i], ids[(i+1)%len(ids)], roadgraph.Major, shape); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}

	res := blocks.Extract(g, blocks.Options{MinArea: 1})
	if len(res.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(res.Blocks))
	}
	ls, lstats := lots.Subdivide(res.Blocks[0].ID, res.Blocks[0].Polygon, lots.Options{MinArea: 1000, MaxArea: 3000})

	nodes, edges := FromGraph(g)
	return Document{
		Version: FormatVersion,
		RunID:   "run-1",
		Seed:    7,
		Bounds:  BoundsOf(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 100}}),
		Streamlines: FromStreamlines([]streamline.Streamline{
			{ID: 0, Kind: streamline.Major, Points: orb.LineString{{0, 0}, {100, 0}}},
		}),
		Nodes:       nodes,
		Edges:       edges,
		Blocks:      FromBlocks(res.Blocks),
		Lots:        FromLots(ls),
		Diagnostics: Diagnostics{Blocks: res.Stats, Lots: lstats},
	}
}

func TestFromGraph(t *testing.T) {
	d := squareDoc(t)
	if len(d.Nodes) != 4 || len(d.Edges) != 4 {
		t.Fatalf("nodes/edges = %d/%d, want 4/4", len(d.Nodes), len(d.Edges))
	}
	for _, n := range d.Nodes {
		if n.Role != "through" {
			t.Errorf("node %d role = %q, want through", n.ID, n.Role)
		}
	}
	if got := d.Edges[0].Shape; len(got) != 1 || got[0] != (orb.Point{50, 0}) {
		t.Errorf("edge 0 shape = %v", got)
	}
	if len(d.Lots) != 4 {
		t.Errorf("lots = %d, want 4", len(d.Lots))
	}
}

func TestRoundTrip(t *testing.T) {
	d := squareDoc(t)

	data, err := Marshal(d)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.RunID != d.RunID || got.Seed != d.Seed || got.Bounds != d.Bounds {
		t.Errorf("metadata = %q/%d/%v", got.RunID, got.Seed, got.Bounds)
	}
	if got.Edges[2].Class != roadgraph.Major {
		t.Errorf("class = %v, want major", got.Edges[2].Class)
	}
	if !strings.Contains(string(data), `"class": "major"`) {
		t.Error("class should encode as its name")
	}

	g, err := got.Graph()
	if err != nil {
		t.Fatalf("Graph: %v", err)
	}
	if g.NodeCount() != 4 || g.EdgeCount() != 4 {
		t.Fatalf("graph = %d/%d, want 4/4", g.NodeCount(), g.EdgeCount())
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	e, _ := g.Edge(0)
	if e.Length != d.Edges[0].Length {
		t.Errorf("edge length = %v, want %v", e.Length, d.Edges[0].Length)
	}

	bs := got.BlockList()
	if len(bs) != 1 || bs[0].Area != d.Blocks[0].Area || len(bs[0].Polygon) != len(d.Blocks[0].Polygon) {
		t.Errorf("blocks = %+v", bs)
	}
	ls := got.LotList()
	if len(ls) != 4 || ls[0].Zone != lots.ZoneUnassigned {
		t.Errorf("lots = %+v", ls)
	}
	lines, err := got.StreamlineList()
	if err != nil || len(lines) != 1 || lines[0].Kind != streamline.Major {
		t.Errorf("streamlines = %+v, %v", lines, err)
	}
}

func TestFileRoundTrip(t *testing.T) {
	d := squareDoc(t)
	path := filepath.Join(t.TempDir(), "city.json")
	if err := WriteFile(d, path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got.Lots) != len(d.Lots) {
		t.Errorf("lots = %d, want %d", len(got.Lots), len(d.Lots))
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("ReadFile of a missing file should fail")
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Document)
		is     error
	}{
		{"newer version", func(d *Document) { d.Version = FormatVersion + 1 }, ErrUnsupportedVersion},
		{"node gap", func(d *Document) { d.Nodes[1].ID = 9 }, nil},
		{"edge gap", func(d *Document) { d.Edges[0].ID = 3 }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := squareDoc(t)
			tt.mutate(&d)
			err := d.Check()
			if err == nil {
				t.Fatal("Check() = nil, want error")
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("Check() = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestGraphRejectsBadEdge(t *testing.T) {
	d := squareDoc(t)
	d.Edges[0].To = 42
	if _, err := d.Graph(); !errors.Is(err, roadgraph.ErrUnknownNode) {
		t.Errorf("Graph() = %v, want ErrUnknownNode", err)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("{nope"))); err == nil {
		t.Error("Read should fail on invalid JSON")
	}
}

func TestGeoJSON(t *testing.T) {
	d := squareDoc(t)
	fc := GeoJSON(d)

	if want := len(d.Edges) + len(d.Blocks) + len(d.Lots); len(fc.Features) != want {
		t.Fatalf("features = %d, want %d", len(fc.Features), want)
	}

	road := fc.Features[0]
	ls, ok := road.Geometry.(orb.LineString)
	if !ok {
		t.Fatalf("road geometry = %T", road.Geometry)
	}
	if len(ls) != 3 {
		t.Errorf("road points = %d, want 3 (endpoints plus shape)", len(ls))
	}
	if road.Properties["class"] != "major" || road.Properties["layer"] != LayerRoad {
		t.Errorf("road properties = %v", road.Properties)
	}

	block := fc.Features[len(d.Edges)]
	poly, ok := block.Geometry.(orb.Polygon)
	if !ok {
		t.Fatalf("block geometry = %T", block.Geometry)
	}
	if ring := poly[0]; ring[0] != ring[len(ring)-1] {
		t.Error("block ring should be closed")
	}

	data, err := MarshalGeoJSON(d)
	if err != nil {
		t.Fatalf("MarshalGeoJSON: %v", err)
	}
	parsed, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		t.Fatalf("UnmarshalFeatureCollection: %v", err)
	}
	if len(parsed.Features) != len(fc.Features) {
		t.Errorf("parsed features = %d", len(parsed.Features))
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw["type"] != "FeatureCollection" {
		t.Errorf("raw = %v, %v", raw["type"], err)
	}
}

func TestSummary(t *testing.T) {
	d := squareDoc(t)
	s := d.Summary()
	if s.Nodes != 4 || s.Edges != 4 || s.Blocks != 1 || s.Lots != 4 {
		t.Errorf("Summary() = %+v", s)
	}
	if s.RoadLength != 400 {
		t.Errorf("RoadLength = %v, want 400", s.RoadLength)
	}
}
