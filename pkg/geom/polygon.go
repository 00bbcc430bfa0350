package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Polygon is an open ring of vertices: the closing edge from the last
// vertex back to the first is implicit.
type Polygon []orb.Point

// FromRing converts a closed orb.Ring into an open Polygon.
func FromRing(r orb.Ring) Polygon {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	p := make(Polygon, n)
	copy(p, r[:n])
	return p
}

// Ring returns the polygon as a closed orb.Ring.
func (p Polygon) Ring() orb.Ring {
	if len(p) == 0 {
		return nil
	}
	r := make(orb.Ring, len(p)+1)
	copy(r, p)
	r[len(p)] = p[0]
	return r
}

// SignedArea returns the area of p, positive when p winds
// counter-clockwise.
func (p Polygon) SignedArea() float64 {
	if len(p) < 3 {
		return 0
	}
	return planar.Area(p.Ring())
}

// Area returns the absolute area.
func (p Polygon) Area() float64 { return math.Abs(p.SignedArea()) }

// Centroid returns the area centroid, or the vertex average for degenerate
// polygons.
func (p Polygon) Centroid() orb.Point {
	if len(p) == 0 {
		return orb.Point{}
	}
	if len(p) >= 3 {
		if c, a := planar.CentroidArea(p.Ring()); math.Abs(a) >= Epsilon {
			return c
		}
	}
	var c orb.Point
	for _, v := range p {
		c = Add(c, v)
	}
	return Scale(c, 1/float64(len(p)))
}

// Bound returns the bounding box of p.
func (p Polygon) Bound() orb.Bound {
	return p.Ring().Bound()
}

// Reverse returns p with its winding flipped.
func (p Polygon) Reverse() Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[len(p)-1-i] = v
	}
	return out
}

// EnsureCCW returns p wound counter-clockwise.
func (p Polygon) EnsureCCW() Polygon {
	if len(p) >= 3 && p.Ring().Orientation() == orb.CW {
		return p.Reverse()
	}
	return p
}

// Clean drops consecutive vertices closer than eps, including a trailing
// vertex that repeats the first.
func (p Polygon) Clean(eps float64) Polygon {
	out := make(Polygon, 0, len(p))
	for _, v := range p {
		if len(out) > 0 && Equal(out[len(out)-1], v, eps) {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && Equal(out[0], out[len(out)-1], eps) {
		out = out[:len(out)-1]
	}
	return out
}

// Contains reports whether pt lies inside p, boundary included.
func (p Polygon) Contains(pt orb.Point) bool {
	if len(p) < 3 {
		return false
	}
	return planar.RingContains(p.Ring(), pt)
}

// IsSimple reports whether p has at least three vertices, no repeated
// vertices, no edge folding back onto its predecessor, and no two
// non-adjacent edges that touch or cross.
func (p Polygon) IsSimple() bool {
	n := len(p)
	if n < 3 {
		return false
	}
	seen := make(map[orb.Point]bool, n)
	for _, v := range p {
		if seen[v] {
			return false
		}
		seen[v] = true
	}
	for i := 0; i < n; i++ {
		prev := Sub(p[i], p[(i+n-1)%n])
		next := Sub(p[(i+1)%n], p[i])
		if math.Abs(Cross(prev, next)) < Epsilon*(Len(prev)*Len(next)+1) && Dot(prev, next) < 0 {
			return false
		}
	}
	for i := 0; i < n; i++ {
		a1, a2 := p[i], p[(i+1)%n]
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if _, ok := SegmentIntersection(a1, a2, p[j], p[(j+1)%n]); ok {
				return false
			}
		}
	}
	return true
}
