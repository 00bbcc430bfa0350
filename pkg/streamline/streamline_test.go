package streamline

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/citygen/pkg/field"
	"github.com/matzehuels/citygen/pkg/geom"
)

var bounds = orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1000, 1000}}

func gridField(t *testing.T, angle float64) *field.TensorField {
	t.Helper()
	f, err := field.New(bounds, []field.Basis{field.NewGrid(orb.Point{500, 500}, 0, angle)})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func radialField(t *testing.T, guard float64) *field.TensorField {
	t.Helper()
	b := field.NewRadial(orb.Point{500, 500}, 0)
	b.FocusGuard = guard
	f, err := field.New(bounds, []field.Basis{b})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func latticeOptions() Options {
	return Options{
		TraceOptions: TraceOptions{StepLength: 10, MaxLength: 500},
		SeedSpacing:  50,
		Separation:   40,
		Workers:      4,
	}
}

func TestSeedsGrid(t *testing.T) {
	seeds := Seeds(bounds, 50, 0, 1)
	if len(seeds) != 21*21 {
		t.Fatalf("got %d seeds, want 441", len(seeds))
	}
	if seeds[0] != (orb.Point{0, 0}) || seeds[1] != (orb.Point{50, 0}) || seeds[21] != (orb.Point{0, 50}) {
		t.Errorf("seeds not in row-major order: %v %v %v", seeds[0], seeds[1], seeds[21])
	}
}

func TestSeedsJitterDeterministic(t *testing.T) {
	a := Seeds(bounds, 100, 0.8, 7)
	b := Seeds(bounds, 100, 0.8, 7)
	if !reflect.DeepEqual(a, b) {
		t.Error("jittered seeds differ for the same seed value")
	}
	c := Seeds(bounds, 100, 0.8, 8)
	if reflect.DeepEqual(a, c) {
		t.Error("jittered seeds should depend on the seed value")
	}
	for _, p := range a {
		if !bounds.Contains(p) {
			t.Fatalf("seed %v outside bounds", p)
		}
	}
}

func TestTraceGridStraight(t *testing.T) {
	tr := NewTracer(gridField(t, 0), TraceOptions{StepLength: 10, MaxLength: 200})
	got := tr.Trace(orb.Point{500, 300}, Major)
	if len(got.Points) != 41 {
		t.Fatalf("got %d points, want 41", len(got.Points))
	}
	for _, p := range got.Points {
		if p[1] != 300 {
			t.Fatalf("major streamline left its row: %v", p)
		}
	}
	if got.Points[got.SeedIndex] != (orb.Point{500, 300}) {
		t.Errorf("seed index %d does not point at the seed", got.SeedIndex)
	}
	if got.Forward != StopLength || got.Backward != StopLength {
		t.Errorf("stops = %v/%v, want length/length", got.Forward, got.Backward)
	}

	minor := tr.Trace(orb.Point{500, 300}, Minor)
	for _, p := range minor.Points {
		if p[0] != 500 {
			t.Fatalf("minor streamline left its column: %v", p)
		}
	}
}

func TestTraceStopsAtBounds(t *testing.T) {
	tr := NewTracer(gridField(t, 0), TraceOptions{StepLength: 10, MaxLength: 5000, Integrator: Euler})
	got := tr.Trace(orb.Point{500, 10}, Major)
	first, last := got.Points[0], got.Points[len(got.Points)-1]
	if first[0] != 0 || last[0] != 1000 {
		t.Errorf("trace spans %v..%v, want x 0..1000", first, last)
	}
	if got.Forward != StopBounds || got.Backward != StopBounds {
		t.Errorf("stops = %v/%v, want bounds/bounds", got.Forward, got.Backward)
	}
}

func TestTraceAvoidsRadialFocus(t *testing.T) {
	focus := orb.Point{500, 500}
	tr := NewTracer(radialField(t, 10), TraceOptions{StepLength: 10, MaxLength: 1000})

	// Seed on the ray through the focus: the trace heads straight at it.
	got := tr.Trace(orb.Point{500, 100}, Major)
	if !got.Degenerate() {
		t.Error("trace toward the focus should stop on a degenerate sample")
	}
	for i, p := range got.Points {
		if geom.Dist(p, focus) < 10 {
			t.Fatalf("point %d at %v is inside the focus guard", i, p)
		}
		if i > 0 && planar.DistanceFromSegment(got.Points[i-1], p, focus) < 1e-6 {
			t.Fatalf("segment %d passes through the focus", i)
		}
	}
}

func TestTraceClosesCircle(t *testing.T) {
	tr := NewTracer(radialField(t, 10), TraceOptions{StepLength: 10, MaxLength: 5000})
	got := tr.Trace(orb.Point{500, 100}, Minor)
	if !got.Closed {
		t.Fatalf("concentric trace should close, stops %v/%v", got.Forward, got.Backward)
	}
	first, last := got.Points[0], got.Points[len(got.Points)-1]
	if geom.Dist(first, last) > 10 {
		t.Errorf("loop ends %v away from its start", geom.Dist(first, last))
	}
	for _, p := range got.Points {
		if r := geom.Dist(p, orb.Point{500, 500}); math.Abs(r-400) > 1 {
			t.Fatalf("circle drifted to radius %v", r)
		}
	}
}

func TestTraceDegenerateSeed(t *testing.T) {
	f, err := field.New(bounds, []field.Basis{field.NewGrid(orb.Point{100, 100}, 50, 0)})
	if err != nil {
		t.Fatal(err)
	}
	got := NewTracer(f, TraceOptions{StepLength: 10, MaxLength: 100}).Trace(orb.Point{900, 900}, Major)
	if len(got.Points) != 1 || !got.Degenerate() {
		t.Errorf("degenerate seed should yield a single point, got %d", len(got.Points))
	}
}

func TestGenerateLattice(t *testing.T) {
	lines, stats, err := Generate(context.Background(), gridField(t, 0), latticeOptions())
	if err != nil {
		t.Fatal(err)
	}
	var major, minor int
	for i, l := range lines {
		if l.ID != i {
			t.Fatalf("ids not sequential: %d at %d", l.ID, i)
		}
		for _, p := range l.Points {
			switch l.Kind {
			case Major:
				if p[1] != l.Seed[1] {
					t.Fatalf("major streamline %d not horizontal", l.ID)
				}
			case Minor:
				if p[0] != l.Seed[0] {
					t.Fatalf("minor streamline %d not vertical", l.ID)
				}
			}
		}
		if l.Kind == Major {
			major++
		} else {
			minor++
		}
	}
	// Each of the 21 rows is covered by two streamlines of length 500
	// joined at the middle.
	if major != 42 || minor != 42 {
		t.Errorf("got %d major and %d minor streamlines, want 42/42", major, minor)
	}
	if stats.Joins == 0 {
		t.Error("expected joins between collinear streamlines")
	}
	if stats.SeedsSkipped == 0 {
		t.Error("expected seeds skipped by separation")
	}
}

func TestGenerateSeparation(t *testing.T) {
	opts := latticeOptions()
	opts.SeedSpacing = 20
	opts.Separation = 60
	lines, _, err := Generate(context.Background(), gridField(t, 0.3), opts)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range lines {
		for _, b := range lines[:i] {
			if a.Kind != b.Kind {
				continue
			}
			for j := 1; j < len(b.Points); j++ {
				if d := planar.DistanceFromSegment(b.Points[j-1], b.Points[j], a.Seed); d < opts.Separation {
					t.Fatalf("seed of %d is %v from accepted streamline %d", a.ID, d, b.ID)
				}
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	f := gridField(t, 0.4)
	opts := latticeOptions()
	opts.SeedJitter = 0.5
	opts.Seed = 99
	a, _, err := Generate(context.Background(), f, opts)
	if err != nil {
		t.Fatal(err)
	}
	opts.Workers = 1
	b, _, err := Generate(context.Background(), f, opts)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("generation differs between worker counts")
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Generate(ctx, gridField(t, 0), latticeOptions())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestParseIntegrator(t *testing.T) {
	tests := []struct {
		in   string
		want Integrator
		ok   bool
	}{
		{"", RK4, true},
		{"rk4", RK4, true},
		{"euler", Euler, true},
		{"midpoint", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseIntegrator(tt.in)
		if (err == nil) != tt.ok || (tt.ok && got != tt.want) {
			t.Errorf("ParseIntegrator(%q) = %v, %v", tt.in, got, err)
		}
	}
}
