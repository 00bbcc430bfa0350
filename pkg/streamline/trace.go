// Package streamline traces road centerlines through a tensor field.
//
// A [Tracer] integrates a single seed forward and backward along the
// field's major or minor eigenvector. [Generate] seeds the whole map,
// traces every seed of a pass on a bounded worker pool and then accepts
// the traced candidates one by one in seed order, enforcing the separation
// distance between streamlines of the same kind.
package streamline

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/citygen/pkg/field"
	"github.com/matzehuels/citygen/pkg/geom"
)

// Kind selects which eigenvector a streamline follows.
type Kind int

const (
	// Major follows the dominant direction.
	Major Kind = iota
	// Minor follows the perpendicular direction.
	Minor
)

func (k Kind) String() string {
	switch k {
	case Major:
		return "major"
	case Minor:
		return "minor"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts "major" or "minor".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	}
	return 0, fmt.Errorf("unknown streamline kind %q", s)
}

// Integrator selects the integration scheme.
type Integrator int

const (
	// RK4 is fourth-order Runge-Kutta with per-stage sign alignment.
	RK4 Integrator = iota
	// Euler takes one sample per step.
	Euler
)

// ParseIntegrator converts a configuration name. The empty string selects
// RK4.
func ParseIntegrator(s string) (Integrator, error) {
	switch s {
	case "", "rk4":
		return RK4, nil
	case "euler":
		return Euler, nil
	}
	return 0, fmt.Errorf("unknown integrator %q (must be one of: rk4, euler)", s)
}

func (i Integrator) String() string {
	if i == Euler {
		return "euler"
	}
	return "rk4"
}

// Streamline is a traced polyline.
type Streamline struct {
	ID     int
	Kind   Kind
	Seed   orb.Point
	Points orb.LineString
}

// Length returns the arc length of the streamline.
func (s Streamline) Length() float64 { return planar.Length(s.Points) }

// Stop records why one direction of a trace ended.
type Stop int

const (
	// StopBounds: the next step would leave the map extent. The last
	// point is clipped to the boundary.
	StopBounds Stop = iota
	// StopLength: the half reached TraceOptions.MaxLength.
	StopLength
	// StopDegenerate: the field was degenerate, or inside a focus guard,
	// at the next sample.
	StopDegenerate
	// StopStalled: a step moved less than the stall tolerance.
	StopStalled
	// StopSelfIntersection: the half came within SelfTolerance of its own
	// earlier points.
	StopSelfIntersection
)

// Trace is the raw result of integrating one seed.
type Trace struct {
	Points orb.LineString
	// SeedIndex is the position of the seed within Points.
	SeedIndex int
	Forward   Stop
	Backward  Stop
	// Closed is set when the forward half ran back into itself, in which
	// case no backward half is traced.
	Closed bool
}

// Degenerate reports whether either half stopped on a degenerate sample.
func (t Trace) Degenerate() bool {
	return t.Forward == StopDegenerate || t.Backward == StopDegenerate
}

// SelfIntersected reports whether either half stopped on itself.
func (t Trace) SelfIntersected() bool {
	return t.Forward == StopSelfIntersection || t.Backward == StopSelfIntersection
}

// TraceOptions controls integration of a single streamline.
type TraceOptions struct {
	StepLength float64
	// MaxLength bounds the arc length traced in each direction from the seed.
	MaxLength float64
	// SelfTolerance is how close a trace may come to its own earlier
	// points before it is considered to have looped.
	SelfTolerance float64
	Integrator    Integrator
}

// Tracer integrates streamlines through an immutable field. It holds no
// mutable state and is safe for concurrent use.
type Tracer struct {
	field  *field.TensorField
	bounds orb.Bound
	opts   TraceOptions
}

// NewTracer returns a tracer over f.
func NewTracer(f *field.TensorField, opts TraceOptions) *Tracer {
	if opts.SelfTolerance <= 0 {
		opts.SelfTolerance = opts.StepLength / 2
	}
	return &Tracer{field: f, bounds: f.Bounds(), opts: opts}
}

// direction samples the field at p, picks the eigenvector for kind and
// flips it to point along prev. ok is false for degenerate samples.
func (t *Tracer) direction(p orb.Point, kind Kind, prev orb.Point) (orb.Point, bool) {
	s := t.field.Sample(p)
	if s.Degenerate {
		return orb.Point{}, false
	}
	d := s.Major
	if kind == Minor {
		d = s.Minor
	}
	if geom.Dot(d, prev) < 0 {
		d = geom.Scale(d, -1)
	}
	return d, true
}

// step advances from p by one step. It returns the next point and the
// direction used to reach it.
func (t *Tracer) step(p orb.Point, kind Kind, prev orb.Point) (orb.Point, orb.Point, bool) {
	h := t.opts.StepLength
	k1, ok := t.direction(p, kind, prev)
	if !ok {
		return orb.Point{}, orb.Point{}, false
	}
	dir := k1
	if t.opts.Integrator == RK4 {
		k2, ok := t.direction(geom.Add(p, geom.Scale(k1, h/2)), kind, k1)
		if !ok {
			return orb.Point{}, orb.Point{}, false
		}
		k3, ok := t.direction(geom.Add(p, geom.Scale(k2, h/2)), kind, k2)
		if !ok {
			return orb.Point{}, orb.Point{}, false
		}
		k4, ok := t.direction(geom.Add(p, geom.Scale(k3, h)), kind, k3)
		if !ok {
			return orb.Point{}, orb.Point{}, false
		}
		sum := geom.Add(geom.Add(k1, geom.Scale(k2, 2)), geom.Add(geom.Scale(k3, 2), k4))
		dir = geom.Normalize(sum)
		if geom.Len(dir) == 0 {
			return orb.Point{}, orb.Point{}, false
		}
	}
	next := geom.Add(p, geom.Scale(dir, h))
	if t.field.Sample(next).Degenerate {
		return orb.Point{}, orb.Point{}, false
	}
	return next, dir, true
}

// Trace integrates seed in both directions. A seed on a degenerate sample
// yields a single-point trace.
func (t *Tracer) Trace(seed orb.Point, kind Kind) Trace {
	initial, ok := t.direction(seed, kind, orb.Point{})
	if !ok {
		return Trace{Points: orb.LineString{seed}, Forward: StopDegenerate, Backward: StopDegenerate}
	}

	forward, fstop := t.half(orb.LineString{seed}, nil, kind, initial)
	tr := Trace{Points: forward, Forward: fstop, Backward: StopLength}
	if fstop == StopSelfIntersection {
		tr.Closed = true
		return tr
	}

	backward, bstop := t.half(orb.LineString{seed}, forward, kind, geom.Scale(initial, -1))
	tr.Backward = bstop

	pts := make(orb.LineString, 0, len(backward)+len(forward)-1)
	for i := len(backward) - 1; i >= 1; i-- {
		pts = append(pts, backward[i])
	}
	tr.SeedIndex = len(pts)
	tr.Points = append(pts, forward...)
	return tr
}

// half traces one direction starting from pts[0]. other holds the
// opposite half, which is checked for crossings as well.
func (t *Tracer) half(pts orb.LineString, other orb.LineString, kind Kind, dir orb.Point) (orb.LineString, Stop) {
	p := pts[0]
	var length float64
	for {
		next, nd, ok := t.step(p, kind, dir)
		if !ok {
			return pts, StopDegenerate
		}
		seg := geom.Dist(p, next)
		if seg < geom.Epsilon {
			return pts, StopStalled
		}
		if !t.bounds.Contains(next) {
			return pts, StopBounds
		}
		if length+seg > t.opts.MaxLength+geom.Epsilon {
			return pts, StopLength
		}
		if q, hit := t.selfHit(pts, other, p, next); hit {
			return append(pts, q), StopSelfIntersection
		}
		pts = append(pts, next)
		length += seg
		p, dir = next, nd
	}
}

// selfHit checks the candidate segment p-next against the trace so far
// and the opposite half. It returns the point that closes the loop: an
// earlier vertex within the tolerance of next, or the crossing with an
// earlier segment.
func (t *Tracer) selfHit(pts, other orb.LineString, p, next orb.Point) (orb.Point, bool) {
	tol := t.opts.SelfTolerance
	recent := int(math.Ceil(tol/t.opts.StepLength)) + 2

	for i := 0; i < len(pts)-recent; i++ {
		if geom.Dist(next, pts[i]) < tol {
			return pts[i], true
		}
	}
	for i := 1; i < len(other); i++ {
		if geom.Dist(next, other[i]) < tol {
			return other[i], true
		}
	}
	if q, ok := crossing(pts[:len(pts)-1], p, next); ok {
		return q, true
	}
	return crossing(other, p, next)
}

// crossing returns the first crossing of p-next with a segment of line,
// ignoring contact at p itself.
func crossing(line orb.LineString, p, next orb.Point) (orb.Point, bool) {
	for i := 0; i+1 < len(line); i++ {
		x, ok := geom.SegmentIntersection(p, next, line[i], line[i+1])
		if ok && x.TA > 1e-9 {
			return x.Point, true
		}
	}
	return orb.Point{}, false
}
