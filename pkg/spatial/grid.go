// Package spatial provides a uniform-grid index for proximity queries.
//
// Items are integer ids registered under a bounding box; every cell the box
// overlaps stores the id. Queries return candidate ids in ascending order
// so callers iterate deterministically. Exact distance tests are left to
// the caller.
package spatial

import (
	"math"
	"slices"

	"github.com/paulmach/orb"
)

type cell struct{ x, y int }

// Grid buckets ids by cell. The zero value is not usable; call NewGrid.
type Grid struct {
	size  float64
	cells map[cell][]int
	count int
}

// NewGrid returns an empty index with the given cell size. Non-positive
// sizes fall back to 1.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = 1
	}
	return &Grid{size: cellSize, cells: make(map[cell][]int)}
}

// CellSize returns the grid cell size.
func (g *Grid) CellSize() float64 { return g.size }

// Len returns the number of insertions.
func (g *Grid) Len() int { return g.count }

func (g *Grid) cellOf(p orb.Point) cell {
	return cell{int(math.Floor(p[0] / g.size)), int(math.Floor(p[1] / g.size))}
}

// InsertPoint registers id at p.
func (g *Grid) InsertPoint(id int, p orb.Point) {
	c := g.cellOf(p)
	g.cells[c] = append(g.cells[c], id)
	g.count++
}

// InsertBound registers id in every cell overlapped by b.
func (g *Grid) InsertBound(id int, b orb.Bound) {
	lo, hi := g.cellOf(b.Min), g.cellOf(b.Max)
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			c := cell{x, y}
			g.cells[c] = append(g.cells[c], id)
		}
	}
	g.count++
}

// Near returns the ids registered in cells within r of p, sorted and
// deduplicated.
func (g *Grid) Near(p orb.Point, r float64) []int {
	return g.Query(orb.Bound{Min: p, Max: p}.Pad(r))
}

// Query returns the ids registered in cells overlapped by b, sorted and
// deduplicated.
func (g *Grid) Query(b orb.Bound) []int {
	lo, hi := g.cellOf(b.Min), g.cellOf(b.Max)
	var out []int
	for x := lo.x; x <= hi.x; x++ {
		for y := lo.y; y <= hi.y; y++ {
			out = append(out, g.cells[cell{x, y}]...)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
