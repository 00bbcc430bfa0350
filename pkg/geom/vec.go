// Package geom provides the planar geometry used by the road generator.
//
// Points, bounds and polylines are the [orb] types so that generated
// networks can be handed to any orb-aware consumer (GeoJSON encoders,
// planar algorithms) without conversion. This package adds the vector
// arithmetic and polygon operations orb leaves to callers: segment
// intersection, point-segment projection, simplicity checks, convex hulls,
// minimum-area oriented bounding boxes and splitting a polygon along a
// line. Areas, centroids, lengths and distances come from [planar].
//
// All functions are pure and safe for concurrent use.
package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Epsilon is the default tolerance for geometric predicates.
const Epsilon = 1e-9

// Add returns a + b.
func Add(a, b orb.Point) orb.Point { return orb.Point{a[0] + b[0], a[1] + b[1]} }

// Sub returns a - b.
func Sub(a, b orb.Point) orb.Point { return orb.Point{a[0] - b[0], a[1] - b[1]} }

// Scale returns p * s.
func Scale(p orb.Point, s float64) orb.Point { return orb.Point{p[0] * s, p[1] * s} }

// Dot returns the dot product of a and b.
func Dot(a, b orb.Point) float64 { return a[0]*b[0] + a[1]*b[1] }

// Cross returns the z component of the 3D cross product of a and b.
func Cross(a, b orb.Point) float64 { return a[0]*b[1] - a[1]*b[0] }

// Len returns the Euclidean length of p treated as a vector.
func Len(p orb.Point) float64 { return math.Hypot(p[0], p[1]) }

// Dist returns the Euclidean distance between a and b.
func Dist(a, b orb.Point) float64 { return planar.Distance(a, b) }

// Dist2 returns the squared distance between a and b.
func Dist2(a, b orb.Point) float64 { return planar.DistanceSquared(a, b) }

// Normalize returns p scaled to unit length. The zero vector is returned
// unchanged.
func Normalize(p orb.Point) orb.Point {
	l := Len(p)
	if l < Epsilon {
		return orb.Point{}
	}
	return orb.Point{p[0] / l, p[1] / l}
}

// Perp returns p rotated 90 degrees counter-clockwise.
func Perp(p orb.Point) orb.Point { return orb.Point{-p[1], p[0]} }

// Lerp interpolates between a and b.
func Lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// FromAngle returns the unit vector at angle theta (radians).
func FromAngle(theta float64) orb.Point {
	return orb.Point{math.Cos(theta), math.Sin(theta)}
}

// Angle returns the angle of p in radians in (-pi, pi].
func Angle(p orb.Point) float64 { return math.Atan2(p[1], p[0]) }

// Equal reports whether a and b are within eps of each other.
func Equal(a, b orb.Point, eps float64) bool {
	return math.Abs(a[0]-b[0]) <= eps && math.Abs(a[1]-b[1]) <= eps
}

// PointAlong returns the point at fraction f (0..1) of the arc length of ls.
func PointAlong(ls orb.LineString, f float64) orb.Point {
	if len(ls) == 0 {
		return orb.Point{}
	}
	if len(ls) == 1 || f <= 0 {
		return ls[0]
	}
	target := planar.Length(ls) * f
	var walked float64
	for i := 1; i < len(ls); i++ {
		seg := Dist(ls[i-1], ls[i])
		if walked+seg >= target && seg > 0 {
			return Lerp(ls[i-1], ls[i], (target-walked)/seg)
		}
		walked += seg
	}
	return ls[len(ls)-1]
}
