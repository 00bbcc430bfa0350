package lots

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/matzehuels/citygen/pkg/blocks"
	"github.com/matzehuels/citygen/pkg/geom"
)

func rect(x, y, w, h float64) geom.Polygon {
	return geom.Polygon{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
}

func totalArea(lots []Lot) float64 {
	var sum float64
	for _, l := range lots {
		sum += l.Area
	}
	return sum
}

func TestSubdivideRectangle(t *testing.T) {
	lots, stats := Subdivide(3, rect(0, 0, 100, 40), Options{MinArea: 200, MaxArea: 800})
	if len(lots) != 8 {
		t.Fatalf("got %d lots, want 8", len(lots))
	}
	for i, l := range lots {
		if math.Abs(l.Area-500) > 1e-6 {
			t.Errorf("lot %d area = %v, want 500", i, l.Area)
		}
		if l.Undersized || l.BlockID != 3 || l.ID != i || l.Zone != ZoneUnassigned {
			t.Errorf("lot %d = %+v", i, l)
		}
		if l.Polygon.SignedArea() <= 0 {
			t.Errorf("lot %d is not counter-clockwise", i)
		}
	}
	if stats.Splits != 7 || stats.Undersized != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSubdivideConservesArea(t *testing.T) {
	tests := []struct {
		name string
		poly geom.Polygon
	}{
		{"rotated", geom.Polygon{{0, 0}, {300, 120}, {240, 270}, {-60, 150}}},
		{"pentagon", geom.Polygon{{0, 0}, {200, -20}, {260, 140}, {120, 260}, {-40, 150}}},
		{"l shape", geom.Polygon{{0, 0}, {200, 0}, {200, 80}, {80, 80}, {80, 200}, {0, 200}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lots, _ := Subdivide(0, tt.poly, Options{MinArea: 200, MaxArea: 800})
			if len(lots) < 2 {
				t.Fatalf("got %d lots, want a subdivision", len(lots))
			}
			if got, want := totalArea(lots), tt.poly.Area(); math.Abs(got-want) > 1e-6*want {
				t.Errorf("lot areas sum to %v, block area %v", got, want)
			}
		})
	}
}

func TestSubdivideConcaveBlock(t *testing.T) {
	u := geom.Polygon{{0, 0}, {100, 0}, {100, 200}, {80, 200}, {80, 20}, {20, 20}, {20, 200}, {0, 200}}
	lots, _ := Subdivide(0, u, Options{MinArea: 100, MaxArea: 5000})
	if len(lots) < 3 {
		t.Fatalf("got %d lots, want the prongs split apart", len(lots))
	}
	for _, l := range lots {
		if !l.Polygon.IsSimple() {
			t.Errorf("lot %d is not simple: %v", l.ID, l.Polygon)
		}
		if l.Area > 5000 {
			t.Errorf("lot %d area %v above the maximum", l.ID, l.Area)
		}
	}
	if got := totalArea(lots); math.Abs(got-9200) > 1e-6 {
		t.Errorf("lot areas sum to %v, block area 9200", got)
	}
}

func TestSubdivideUndersized(t *testing.T) {
	lots, stats := Subdivide(0, rect(0, 0, 30, 30), Options{MinArea: 500, MaxArea: 800})
	if len(lots) != 2 || stats.Undersized != 2 {
		t.Fatalf("got %d lots, %d undersized; want 2/2", len(lots), stats.Undersized)
	}
	for _, l := range lots {
		if !l.Undersized {
			t.Errorf("lot %d with area %v should be undersized", l.ID, l.Area)
		}
	}

	tri := geom.Polygon{{0, 0}, {20, 0}, {0, 15}}
	lots, _ = Subdivide(0, tri, Options{MinArea: 200, MaxArea: 800})
	if len(lots) != 1 || !lots[0].Undersized {
		t.Errorf("small block should yield one undersized lot, got %+v", lots)
	}
}

func TestSubdivideMinSplittable(t *testing.T) {
	lots, _ := Subdivide(0, rect(0, 0, 30, 30), Options{MinArea: 500, MaxArea: 800, MinSplittableArea: 1000})
	if len(lots) != 1 || lots[0].Undersized {
		t.Errorf("got %+v, want one regular lot", lots)
	}
}

func TestSubdivideMaxLots(t *testing.T) {
	block := rect(0, 0, 1000, 1000)
	lots, stats := Subdivide(0, block, Options{MinArea: 200, MaxArea: 800, MaxLots: 10})
	if len(lots) > 10 {
		t.Fatalf("got %d lots, cap is 10", len(lots))
	}
	if stats.Capped == 0 {
		t.Error("expected capped pieces")
	}
	if got := totalArea(lots); math.Abs(got-1e6) > 1e-3 {
		t.Errorf("area not conserved under the cap: %v", got)
	}
}

func TestSubdivideAll(t *testing.T) {
	bs := []blocks.Block{
		{ID: 0, Polygon: rect(0, 0, 100, 40)},
		{ID: 1, Polygon: rect(200, 0, 40, 30)},
	}
	lots, stats, err := SubdivideAll(context.Background(), bs, Options{MinArea: 200, MaxArea: 800})
	if err != nil {
		t.Fatal(err)
	}
	if len(lots) != 10 || stats.Lots != 10 {
		t.Fatalf("got %d lots (stats %d), want 10", len(lots), stats.Lots)
	}
	for i, l := range lots {
		if l.ID != i {
			t.Errorf("lot ids not sequential at %d", i)
		}
	}
	if lots[9].BlockID != 1 {
		t.Errorf("last lot belongs to block %d", lots[9].BlockID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := SubdivideAll(ctx, bs, Options{MinArea: 200, MaxArea: 800}); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func ExampleSubdivide() {
	block := geom.Polygon{orb.Point{0, 0}, orb.Point{40, 0}, orb.Point{40, 20}, orb.Point{0, 20}}
	lots, _ := Subdivide(0, block, Options{MinArea: 200, MaxArea: 500})
	for _, l := range lots {
		fmt.Printf("lot %d: %.0f\n", l.ID, l.Area)
	}
	// Output:
	// lot 0: 400
	// lot 1: 400
}
