package geom

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func approxEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func square(x, y, s float64) Polygon {
	return Polygon{{x, y}, {x + s, y}, {x + s, y + s}, {x, y + s}}
}

func TestSignedArea(t *testing.T) {
	sq := square(0, 0, 10)
	if got := sq.SignedArea(); !approxEqual(got, 100, 1e-9) {
		t.Errorf("SignedArea(ccw) = %v, want 100", got)
	}
	if got := sq.Reverse().SignedArea(); !approxEqual(got, -100, 1e-9) {
		t.Errorf("SignedArea(cw) = %v, want -100", got)
	}
	if got := (Polygon{{0, 0}, {1, 1}}).SignedArea(); got != 0 {
		t.Errorf("SignedArea(degenerate) = %v, want 0", got)
	}
}

func TestCentroid(t *testing.T) {
	c := square(0, 0, 10).Centroid()
	if !Equal(c, orb.Point{5, 5}, 1e-9) {
		t.Errorf("Centroid = %v, want (5,5)", c)
	}
}

func TestRingRoundTrip(t *testing.T) {
	sq := square(0, 0, 4)
	r := sq.Ring()
	if len(r) != 5 || r[0] != r[4] {
		t.Fatalf("Ring should be closed, got %v", r)
	}
	back := FromRing(r)
	if len(back) != 4 {
		t.Errorf("FromRing len = %d, want 4", len(back))
	}
}

func TestSegmentIntersection(t *testing.T) {
	tests := []struct {
		name           string
		a1, a2, b1, b2 orb.Point
		want           orb.Point
		ok             bool
	}{
		{"cross", orb.Point{0, 0}, orb.Point{10, 10}, orb.Point{0, 10}, orb.Point{10, 0}, orb.Point{5, 5}, true},
		{"touch endpoint", orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{10, 0}, orb.Point{10, 10}, orb.Point{10, 0}, true},
		{"T junction", orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{5, 0}, orb.Point{5, 5}, orb.Point{5, 0}, true},
		{"parallel", orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{0, 1}, orb.Point{10, 1}, orb.Point{}, false},
		{"disjoint", orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{5, -1}, orb.Point{5, 1}, orb.Point{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, ok := SegmentIntersection(tt.a1, tt.a2, tt.b1, tt.b2)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && !Equal(x.Point, tt.want, 1e-9) {
				t.Errorf("point = %v, want %v", x.Point, tt.want)
			}
		})
	}
}

func TestContains(t *testing.T) {
	l := Polygon{{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}}
	tests := []struct {
		pt   orb.Point
		want bool
	}{
		{orb.Point{2, 2}, true},
		{orb.Point{8, 8}, false},
		{orb.Point{10, 2}, true},
		{orb.Point{-1, 5}, false},
	}
	for _, tt := range tests {
		if got := l.Contains(tt.pt); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.pt, got, tt.want)
		}
	}
}

func TestSegmentBound(t *testing.T) {
	b := SegmentBound(orb.Point{4, -1}, orb.Point{-2, 3})
	if b.Min != (orb.Point{-2, -1}) || b.Max != (orb.Point{4, 3}) {
		t.Errorf("SegmentBound = %v", b)
	}
}

func TestIsSimple(t *testing.T) {
	tests := []struct {
		name string
		p    Polygon
		want bool
	}{
		{"square", square(0, 0, 1), true},
		{"collinear vertex", Polygon{{0, 0}, {1, 0}, {2, 0}, {2, 2}, {0, 2}}, true},
		{"bowtie", Polygon{{0, 0}, {2, 2}, {2, 0}, {0, 2}}, false},
		{"repeated vertex", Polygon{{0, 0}, {2, 0}, {1, 1}, {2, 2}, {0, 2}, {1, 1}}, false},
		{"spike", Polygon{{0, 0}, {2, 0}, {3, 0}, {2, 0.0}, {2, 2}, {0, 2}}, false},
		{"too few", Polygon{{0, 0}, {1, 0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsSimple(); got != tt.want {
				t.Errorf("IsSimple() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvexHull(t *testing.T) {
	pts := []orb.Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {2, 2}, {1, 3}, {2, 0}}
	hull := ConvexHull(pts)
	if len(hull) != 4 {
		t.Fatalf("hull has %d points, want 4: %v", len(hull), hull)
	}
	if hull.SignedArea() <= 0 {
		t.Error("hull should be counter-clockwise")
	}
}

func TestMinAreaRectRotated(t *testing.T) {
	// 20x10 rectangle rotated by 30 degrees.
	theta := math.Pi / 6
	u := FromAngle(theta)
	v := Perp(u)
	var pts []orb.Point
	for _, c := range [][2]float64{{-10, -5}, {10, -5}, {10, 5}, {-10, 5}} {
		pts = append(pts, Add(Scale(u, c[0]), Scale(v, c[1])))
	}
	box := MinAreaRect(pts)
	if !approxEqual(box.Area(), 200, 1e-6) {
		t.Errorf("Area = %v, want 200", box.Area())
	}
	if !approxEqual(box.HalfLength, 10, 1e-6) || !approxEqual(box.HalfWidth, 5, 1e-6) {
		t.Errorf("half extents = %v,%v, want 10,5", box.HalfLength, box.HalfWidth)
	}
	if !approxEqual(math.Abs(Dot(box.Axis, u)), 1, 1e-6) {
		t.Errorf("axis %v not aligned with %v", box.Axis, u)
	}
}

func sumSigned(ps []Polygon) float64 {
	var sum float64
	for _, p := range ps {
		sum += p.SignedArea()
	}
	return sum
}

func TestSplitByLine(t *testing.T) {
	uBlock := Polygon{{0, 0}, {100, 0}, {100, 200}, {80, 200}, {80, 20}, {20, 20}, {20, 200}, {0, 200}}
	tests := []struct {
		name      string
		p         Polygon
		origin    orb.Point
		normal    orb.Point
		wantAreas []float64
	}{
		{"l shape", Polygon{{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}}, orb.Point{5, 5}, orb.Point{1, 0}, []float64{20, 44}},
		{"u shape across prongs", uBlock, orb.Point{50, 100}, orb.Point{0, 1}, []float64{2000, 2000, 5200}},
		{"vertices on the cut", Polygon{{5, 0}, {10, 5}, {5, 10}, {0, 5}}, orb.Point{5, 5}, orb.Point{1, 0}, []float64{25, 25}},
		{"line misses", square(0, 0, 10), orb.Point{20, 0}, orb.Point{1, 0}, []float64{100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pieces := SplitByLine(tt.p, tt.origin, tt.normal)
			if len(pieces) != len(tt.wantAreas) {
				t.Fatalf("got %d pieces, want %d: %v", len(pieces), len(tt.wantAreas), pieces)
			}
			for i, want := range tt.wantAreas {
				if got := pieces[i].Area(); !approxEqual(got, want, 1e-5) {
					t.Errorf("piece %d area = %v, want %v", i, got, want)
				}
			}
			if got, want := sumSigned(pieces), tt.p.SignedArea(); !approxEqual(got, want, 1e-5) {
				t.Errorf("signed areas sum to %v, want %v", got, want)
			}
		})
	}
}

func TestSplitByLineConcavePiecesAreSimple(t *testing.T) {
	comb := Polygon{{0, 0}, {90, 0}, {90, 60}, {70, 60}, {70, 20}, {55, 20}, {55, 60}, {35, 60}, {35, 20}, {20, 20}, {20, 60}, {0, 60}}
	pieces := SplitByLine(comb, orb.Point{45, 40}, orb.Point{0, 1})
	if len(pieces) != 4 {
		t.Fatalf("got %d pieces, want 4", len(pieces))
	}
	for i, p := range pieces {
		if !p.IsSimple() {
			t.Errorf("piece %d is not simple: %v", i, p)
		}
	}
}

func TestPointAlong(t *testing.T) {
	ls := orb.LineString{{0, 0}, {10, 0}, {10, 10}}
	if p := PointAlong(ls, 0.5); !Equal(p, orb.Point{10, 0}, 1e-9) {
		t.Errorf("PointAlong(0.5) = %v, want (10,0)", p)
	}
	if p := PointAlong(ls, 0.75); !Equal(p, orb.Point{10, 5}, 1e-9) {
		t.Errorf("PointAlong(0.75) = %v, want (10,5)", p)
	}
}
