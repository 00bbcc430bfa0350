// Package lots subdivides city blocks into building lots.
//
// A block is cut recursively through the center of its minimum-area
// oriented bounding box, perpendicular to the box's longer axis, until
// every piece falls within the target area range. A cut through a concave
// block may yield more than two pieces; each is a separate simple polygon.
// Recursion is replaced by an explicit work stack so pathological input
// cannot exhaust the call stack, and a per-block cap bounds the total
// output.
package lots

import (
	"context"

	"github.com/matzehuels/citygen/pkg/blocks"
	"github.com/matzehuels/citygen/pkg/geom"
)

// DefaultMaxLots caps the lots produced from a single block.
const DefaultMaxLots = 1024

// Zone is the land-use assignment of a lot. Zoning is not computed; every
// lot starts unassigned.
type Zone string

// ZoneUnassigned is the zone of every generated lot.
const ZoneUnassigned Zone = "unassigned"

// Lot is a terminal piece of a block.
type Lot struct {
	ID      int
	BlockID int
	Polygon geom.Polygon
	Area    float64
	// Undersized marks lots below the minimum area. They are kept so the
	// lots of a block still cover it.
	Undersized bool
	Zone       Zone
}

// Options controls subdivision.
type Options struct {
	MinArea float64
	MaxArea float64
	// MinSplittableArea stops splitting below this area; zero means MinArea.
	MinSplittableArea float64
	// MaxLots caps lots per block; zero means DefaultMaxLots.
	MaxLots int
}

func (o Options) withDefaults() Options {
	if o.MinSplittableArea <= 0 {
		o.MinSplittableArea = o.MinArea
	}
	if o.MaxLots <= 0 {
		o.MaxLots = DefaultMaxLots
	}
	return o
}

// Stats counts subdivision outcomes.
type Stats struct {
	Lots       int `json:"lots"`
	Undersized int `json:"undersized"`
	Splits     int `json:"splits"`
	// Capped counts pieces emitted unsplit because MaxLots was reached.
	Capped int `json:"capped"`
}

func (s *Stats) add(o Stats) {
	s.Lots += o.Lots
	s.Undersized += o.Undersized
	s.Splits += o.Splits
	s.Capped += o.Capped
}

// Subdivide splits one block polygon. Lot ids are local to the call,
// starting at zero.
func Subdivide(blockID int, poly geom.Polygon, opts Options) ([]Lot, Stats) {
	opts = opts.withDefaults()
	var out []Lot
	var stats Stats
	emit := func(p geom.Polygon, a float64) {
		lot := Lot{
			ID:         len(out),
			BlockID:    blockID,
			Polygon:    p.EnsureCCW(),
			Area:       a,
			Undersized: a < opts.MinArea,
			Zone:       ZoneUnassigned,
		}
		if lot.Undersized {
			stats.Undersized++
		}
		out = append(out, lot)
	}

	stack := []geom.Polygon{poly}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		a := p.Area()

		if a <= opts.MaxArea || a < opts.MinSplittableArea {
			emit(p, a)
			continue
		}
		box := geom.MinAreaRect(p)
		pieces := geom.SplitByLine(p, box.Center, box.Axis)
		if len(pieces) < 2 {
			emit(p, a)
			continue
		}
		if len(out)+len(stack)+len(pieces) > opts.MaxLots {
			stats.Capped++
			emit(p, a)
			continue
		}
		stats.Splits++
		for i := len(pieces) - 1; i >= 0; i-- {
			stack = append(stack, pieces[i])
		}
	}
	stats.Lots = len(out)
	return out, stats
}

// SubdivideAll subdivides every block in order and numbers the lots
// sequentially across blocks. The context is checked between blocks.
func SubdivideAll(ctx context.Context, bs []blocks.Block, opts Options) ([]Lot, Stats, error) {
	var all []Lot
	var stats Stats
	for _, b := range bs {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		lots, st := Subdivide(b.ID, b.Polygon, opts)
		for _, l := range lots {
			l.ID = len(all)
			all = append(all, l)
		}
		stats.add(st)
	}
	return all, stats, nil
}
