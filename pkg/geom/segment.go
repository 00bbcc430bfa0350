package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// Intersection describes a crossing between segments a1-a2 and b1-b2.
// TA and TB are the parameters of the crossing along each segment.
type Intersection struct {
	Point  orb.Point
	TA, TB float64
}

// SegmentIntersection tests segments a1-a2 and b1-b2 for a crossing,
// including touching endpoints. Parallel and collinear segments report no
// intersection; overlapping collinear roads are merged by snapping instead.
func SegmentIntersection(a1, a2, b1, b2 orb.Point) (Intersection, bool) {
	r := Sub(a2, a1)
	s := Sub(b2, b1)
	denom := Cross(r, s)
	if math.Abs(denom) < Epsilon*(Len(r)*Len(s)+1) {
		return Intersection{}, false
	}
	qp := Sub(b1, a1)
	ta := Cross(qp, s) / denom
	tb := Cross(qp, r) / denom

	const tol = 1e-9
	if ta < -tol || ta > 1+tol || tb < -tol || tb > 1+tol {
		return Intersection{}, false
	}
	ta = clamp01(ta)
	tb = clamp01(tb)
	return Intersection{Point: Lerp(a1, a2, ta), TA: ta, TB: tb}, true
}

// ClosestOnSegment returns the point on a-b closest to p and its parameter.
func ClosestOnSegment(p, a, b orb.Point) (orb.Point, float64) {
	ab := Sub(b, a)
	l2 := Dot(ab, ab)
	if l2 < Epsilon {
		return a, 0
	}
	t := clamp01(Dot(Sub(p, a), ab) / l2)
	return Lerp(a, b, t), t
}

// SegmentBound returns the bounding box of segment a-b.
func SegmentBound(a, b orb.Point) orb.Bound {
	return orb.Bound{Min: a, Max: a}.Extend(b)
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
