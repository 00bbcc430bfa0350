package field

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/citygen/pkg/geom"
)

var testBounds = orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1000, 1000}}

func mustField(t *testing.T, bases ...Basis) *TensorField {
	t.Helper()
	f, err := New(testBounds, bases)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

// angleBetween returns the unsigned angle between two undirected lines.
func angleBetween(a, b orb.Point) float64 {
	return math.Atan2(math.Abs(geom.Cross(a, b)), math.Abs(geom.Dot(a, b)))
}

func TestSampleUnitAndPerpendicular(t *testing.T) {
	fields := map[string]*TensorField{
		"grid":     mustField(t, NewGrid(orb.Point{500, 500}, 0, 0.3)),
		"radial":   mustField(t, NewRadial(orb.Point{500, 500}, 0)),
		"polyline": mustField(t, NewPolyline(orb.LineString{{0, 200}, {400, 300}, {1000, 900}}, 300)),
		"blend": mustField(t,
			NewGrid(orb.Point{200, 200}, 300, 0),
			NewGrid(orb.Point{800, 800}, 300, math.Pi/3),
			NewRadial(orb.Point{500, 500}, 200),
		),
	}
	for name, f := range fields {
		t.Run(name, func(t *testing.T) {
			for x := 0.0; x <= 1000; x += 37 {
				for y := 0.0; y <= 1000; y += 41 {
					s := f.Sample(orb.Point{x, y})
					if math.Abs(geom.Len(s.Major)-1) > 1e-9 || math.Abs(geom.Len(s.Minor)-1) > 1e-9 {
						t.Fatalf("non-unit sample at (%v,%v): %+v", x, y, s)
					}
					if d := geom.Dot(s.Major, s.Minor); math.Abs(d) > 1e-9 {
						t.Fatalf("major/minor not perpendicular at (%v,%v): dot=%v", x, y, d)
					}
				}
			}
		})
	}
}

func TestGridDirection(t *testing.T) {
	f := mustField(t, NewGrid(orb.Point{500, 500}, 0, math.Pi/4))
	s := f.Sample(orb.Point{10, 900})
	want := geom.FromAngle(math.Pi / 4)
	if angleBetween(s.Major, want) > 1e-9 {
		t.Errorf("major = %v, want %v", s.Major, want)
	}
	if s.Degenerate {
		t.Error("global grid should never be degenerate")
	}
}

func TestRadialDirection(t *testing.T) {
	focus := orb.Point{500, 500}
	f := mustField(t, NewRadial(focus, 0))

	s := f.Sample(orb.Point{800, 500})
	if angleBetween(s.Major, orb.Point{1, 0}) > 1e-9 {
		t.Errorf("major at east = %v, want radial (1,0)", s.Major)
	}
	if angleBetween(s.Minor, orb.Point{0, 1}) > 1e-9 {
		t.Errorf("minor at east = %v, want tangential (0,1)", s.Minor)
	}

	s = f.Sample(orb.Point{500, 900})
	if angleBetween(s.Major, orb.Point{0, 1}) > 1e-9 {
		t.Errorf("major at north = %v, want (0,1)", s.Major)
	}
}

func TestRadialFocusFallsBack(t *testing.T) {
	focus := orb.Point{500, 500}
	f, err := New(testBounds, []Basis{NewRadial(focus, 0)}, WithDefaultAngle(math.Pi/2))
	if err != nil {
		t.Fatal(err)
	}
	s := f.Sample(focus)
	if !s.Degenerate {
		t.Error("sample at the focus should be degenerate")
	}
	if math.IsNaN(s.Major[0]) || math.IsNaN(s.Major[1]) {
		t.Fatal("sample at the focus returned NaN")
	}
	if angleBetween(s.Major, orb.Point{0, 1}) > 1e-9 {
		t.Errorf("fallback major = %v, want default (0,1)", s.Major)
	}
}

func TestFocusGuard(t *testing.T) {
	b := NewRadial(orb.Point{500, 500}, 0)
	b.FocusGuard = 10
	f := mustField(t, b)
	if !f.Sample(orb.Point{505, 500}).Degenerate {
		t.Error("point inside the focus guard should be degenerate")
	}
	if f.Sample(orb.Point{511, 500}).Degenerate {
		t.Error("point outside the focus guard should not be degenerate")
	}
}

func TestDegenerateOutsideInfluence(t *testing.T) {
	f := mustField(t, NewGrid(orb.Point{100, 100}, 50, 0.5))
	s := f.Sample(orb.Point{900, 900})
	if !s.Degenerate {
		t.Error("sample outside every influence radius should be degenerate")
	}
	if s.Weight != 0 {
		t.Errorf("weight = %v, want 0", s.Weight)
	}
}

func TestOpposingVectorsDoNotCancel(t *testing.T) {
	// Two polylines pointing in opposite directions describe the same road
	// direction; a naive vector average would cancel to zero.
	f := mustField(t,
		NewPolyline(orb.LineString{{0, 500}, {1000, 500}}, 0),
		NewPolyline(orb.LineString{{1000, 510}, {0, 510}}, 0),
	)
	s := f.Sample(orb.Point{500, 505})
	if s.Degenerate {
		t.Fatal("opposite polylines should blend, not cancel")
	}
	if angleBetween(s.Major, orb.Point{1, 0}) > 1e-9 {
		t.Errorf("major = %v, want horizontal", s.Major)
	}
}

func TestPerpendicularGridsCancel(t *testing.T) {
	f := mustField(t,
		NewGrid(orb.Point{500, 500}, 0, 0),
		NewGrid(orb.Point{500, 500}, 0, math.Pi/2),
	)
	if !f.Sample(orb.Point{300, 300}).Degenerate {
		t.Error("equal-weight perpendicular grids should be degenerate")
	}
}

func TestSmoothTransitionBetweenFields(t *testing.T) {
	// Influence radii of 150 around centres 400 apart do not overlap; the
	// feathered falloff still yields a gradual turn from 0 to 45 degrees.
	f := mustField(t,
		NewGrid(orb.Point{300, 500}, 150, 0),
		NewGrid(orb.Point{700, 500}, 150, math.Pi/4),
	)

	prev := f.Sample(orb.Point{300, 500})
	if angleBetween(prev.Major, orb.Point{1, 0}) > 1e-9 {
		t.Fatalf("major at first centre = %v", prev.Major)
	}
	for x := 301.0; x <= 700; x++ {
		s := f.Sample(orb.Point{x, 500})
		if s.Degenerate {
			t.Fatalf("degenerate sample at x=%v", x)
		}
		if step := angleBetween(prev.Major, s.Major); step > 2*math.Pi/180 {
			t.Fatalf("direction jumps %.3f deg between x=%v and x=%v", step*180/math.Pi, x-1, x)
		}
		prev = s
	}
	if angleBetween(prev.Major, geom.FromAngle(math.Pi/4)) > 1e-9 {
		t.Errorf("major at second centre = %v", prev.Major)
	}

	mid := f.Sample(orb.Point{500, 500})
	if got := geom.Angle(mid.Major); math.Abs(got-math.Pi/8) > 1e-6 {
		t.Errorf("midpoint angle = %v deg, want 22.5", got*180/math.Pi)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		b    Basis
		ok   bool
	}{
		{"grid", NewGrid(orb.Point{}, 10, 0), true},
		{"negative radius", NewGrid(orb.Point{}, -1, 0), false},
		{"zero strength", Basis{Kind: Grid, Radius: 1}, false},
		{"short polyline", NewPolyline(orb.LineString{{0, 0}}, 10), false},
		{"zero-length polyline", NewPolyline(orb.LineString{{1, 1}, {1, 1}}, 10), false},
		{"nan focus", NewRadial(orb.Point{math.NaN(), 0}, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.b.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(testBounds, nil); err == nil {
		t.Error("New with no bases should fail")
	}
	if _, err := New(orb.Bound{}, []Basis{NewGrid(orb.Point{}, 0, 0)}); err == nil {
		t.Error("New with empty bounds should fail")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Grid, Radial, PolylineAligned} {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseKind("spiral"); err == nil {
		t.Error("ParseKind should reject unknown kinds")
	}
}
