package geom

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

// ConvexHull returns the convex hull of pts in counter-clockwise order
// using Andrew's monotone chain. Collinear points are dropped.
func ConvexHull(pts []orb.Point) Polygon {
	ps := make([]orb.Point, len(pts))
	copy(ps, pts)
	sort.Slice(ps, func(i, j int) bool {
		if ps[i][0] != ps[j][0] {
			return ps[i][0] < ps[j][0]
		}
		return ps[i][1] < ps[j][1]
	})
	if len(ps) < 3 {
		return Polygon(ps)
	}

	turn := func(o, a, b orb.Point) float64 { return Cross(Sub(a, o), Sub(b, o)) }

	hull := make([]orb.Point, 0, 2*len(ps))
	for _, p := range ps {
		for len(hull) >= 2 && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(ps) - 2; i >= 0; i-- {
		p := ps[i]
		for len(hull) >= lower && turn(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return Polygon(hull[:len(hull)-1])
}

// OBB is an oriented bounding box. Axis is the unit direction of the
// longer side; HalfLength >= HalfWidth.
type OBB struct {
	Center     orb.Point
	Axis       orb.Point
	HalfLength float64
	HalfWidth  float64
}

// Area returns the box area.
func (b OBB) Area() float64 { return 4 * b.HalfLength * b.HalfWidth }

// Corners returns the four corners counter-clockwise.
func (b OBB) Corners() Polygon {
	u := Scale(b.Axis, b.HalfLength)
	v := Scale(Perp(b.Axis), b.HalfWidth)
	return Polygon{
		Sub(Sub(b.Center, u), v),
		Sub(Add(b.Center, u), v),
		Add(Add(b.Center, u), v),
		Add(Sub(b.Center, u), v),
	}
}

// MinAreaRect returns the minimum-area rectangle enclosing pts. One side of
// the optimal rectangle is collinear with a hull edge, so every hull edge
// direction is tried; ties keep the first edge.
func MinAreaRect(pts []orb.Point) OBB {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return OBB{Axis: orb.Point{1, 0}}
	case 1:
		return OBB{Center: hull[0], Axis: orb.Point{1, 0}}
	}

	best := OBB{}
	bestArea := math.Inf(1)
	for i := range hull {
		edge := Sub(hull[(i+1)%len(hull)], hull[i])
		if Len(edge) < Epsilon {
			continue
		}
		u := Normalize(edge)
		v := Perp(u)
		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			pu, pv := Dot(p, u), Dot(p, v)
			minU, maxU = math.Min(minU, pu), math.Max(maxU, pu)
			minV, maxV = math.Min(minV, pv), math.Max(maxV, pv)
		}
		area := (maxU - minU) * (maxV - minV)
		if area < bestArea-Epsilon {
			bestArea = area
			cu, cv := (minU+maxU)/2, (minV+maxV)/2
			best = OBB{
				Center:     Add(Scale(u, cu), Scale(v, cv)),
				Axis:       u,
				HalfLength: (maxU - minU) / 2,
				HalfWidth:  (maxV - minV) / 2,
			}
		}
	}
	if best.HalfWidth > best.HalfLength {
		best.Axis = Perp(best.Axis)
		best.HalfLength, best.HalfWidth = best.HalfWidth, best.HalfLength
	}
	return best
}

// SplitByLine cuts the simple polygon p along the infinite line through
// origin perpendicular to normal and returns every resulting piece, those
// on the normal side first. A concave polygon can fall apart into more
// than two pieces; each piece is a simple ring and their areas sum to the
// area of p. A line that misses p returns p alone.
//
// Crossing points are sorted along the line and paired; the segment
// between a pair lies inside p. Walking the boundary and jumping across
// each such segment traces one piece per cycle. When a vertex lies on the
// line the cut is shifted by a tiny offset so every crossing is proper.
func SplitByLine(p Polygon, origin, normal orb.Point) []Polygon {
	if len(p) < 3 {
		return []Polygon{p}
	}
	origin = Add(origin, Scale(normal, cutOffset(p, origin, normal)))
	side := func(x orb.Point) float64 { return Dot(Sub(x, origin), normal) }
	dir := Perp(normal)

	type vertex struct {
		pt      orb.Point
		cross   bool
		t       float64
		partner int
	}
	n := len(p)
	vs := make([]vertex, 0, n+4)
	var crossings []int
	for i := 0; i < n; i++ {
		cur, next := p[i], p[(i+1)%n]
		vs = append(vs, vertex{pt: cur})
		dc, dn := side(cur), side(next)
		if (dc > 0) != (dn > 0) {
			x := Lerp(cur, next, dc/(dc-dn))
			crossings = append(crossings, len(vs))
			vs = append(vs, vertex{pt: x, cross: true, t: Dot(Sub(x, origin), dir)})
		}
	}
	if len(crossings) == 0 {
		return []Polygon{p}
	}
	sort.SliceStable(crossings, func(i, j int) bool { return vs[crossings[i]].t < vs[crossings[j]].t })
	for k := 0; k+1 < len(crossings); k += 2 {
		a, b := crossings[k], crossings[k+1]
		vs[a].partner, vs[b].partner = b, a
	}

	var pos, neg []Polygon
	visited := make([]bool, len(vs))
	for start := range vs {
		if vs[start].cross || visited[start] {
			continue
		}
		var piece Polygon
		i := start
		for steps := 0; steps <= len(vs); steps++ {
			visited[i] = true
			piece = append(piece, vs[i].pt)
			if vs[i].cross {
				j := vs[i].partner
				piece = append(piece, vs[j].pt)
				i = (j + 1) % len(vs)
			} else {
				i = (i + 1) % len(vs)
			}
			if i == start {
				break
			}
		}
		piece = piece.Clean(Epsilon)
		if len(piece) < 3 || piece.Area() < Epsilon {
			continue
		}
		if side(vs[start].pt) > 0 {
			pos = append(pos, piece)
		} else {
			neg = append(neg, piece)
		}
	}
	return append(pos, neg...)
}

// cutOffset returns how far to shift the cut along normal so that no
// vertex of p lies within tolerance of it. Zero when no vertex is close.
func cutOffset(p Polygon, origin, normal orb.Point) float64 {
	b := p.Bound()
	tol := Epsilon * math.Max(1, math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1]))
	clearOf := func(off float64) bool {
		for _, v := range p {
			if math.Abs(Dot(Sub(v, origin), normal)-off) < tol {
				return false
			}
		}
		return true
	}
	if clearOf(0) {
		return 0
	}
	for k := 1; ; k++ {
		for _, off := range []float64{4 * tol * float64(k), -4 * tol * float64(k)} {
			if clearOf(off) {
				return off
			}
		}
	}
}
