package streamline

import (
	"context"
	"math"
	"runtime"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/citygen/pkg/field"
	"github.com/matzehuels/citygen/pkg/geom"
	"github.com/matzehuels/citygen/pkg/spatial"
)

// Options controls a full tracing run.
type Options struct {
	TraceOptions

	// SeedSpacing is the distance between grid seeds.
	SeedSpacing float64
	// SeedJitter in [0,1] randomizes seed positions.
	SeedJitter float64
	// Seed drives the jitter RNG.
	Seed uint64

	// Separation is the minimum distance between major streamlines.
	Separation float64
	// MinorSeparation is the minimum distance between minor streamlines;
	// zero means Separation.
	MinorSeparation float64

	// Workers bounds the tracing worker pool; zero means GOMAXPROCS.
	Workers int
}

// Stats counts what happened during tracing. Degenerate terminations are
// non-fatal and only reported here.
type Stats struct {
	Seeds                  int `json:"seeds"`
	SeedsSkipped           int `json:"seeds_skipped"`
	Accepted               int `json:"accepted"`
	Discarded              int `json:"discarded"`
	DegenerateTerminations int `json:"degenerate_terminations"`
	SelfIntersections      int `json:"self_intersections"`
	Joins                  int `json:"joins"`
}

func (s *Stats) add(o Stats) {
	s.Seeds += o.Seeds
	s.SeedsSkipped += o.SeedsSkipped
	s.Accepted += o.Accepted
	s.Discarded += o.Discarded
	s.DegenerateTerminations += o.DegenerateTerminations
	s.SelfIntersections += o.SelfIntersections
	s.Joins += o.Joins
}

// Generate seeds the field's bounds and runs the major pass followed by
// the minor pass. Streamlines are returned in acceptance order with ids
// assigned sequentially, which is the canonical order for graph building.
func Generate(ctx context.Context, f *field.TensorField, opts Options) ([]Streamline, Stats, error) {
	seeds := Seeds(f.Bounds(), opts.SeedSpacing, opts.SeedJitter, opts.Seed)
	tracer := NewTracer(f, opts.TraceOptions)

	var all []Streamline
	var stats Stats
	for _, kind := range []Kind{Major, Minor} {
		sep := opts.Separation
		if kind == Minor && opts.MinorSeparation > 0 {
			sep = opts.MinorSeparation
		}
		lines, st, err := TracePass(ctx, tracer, seeds, kind, sep, opts.Workers)
		if err != nil {
			return nil, stats, err
		}
		for _, l := range lines {
			l.ID = len(all)
			all = append(all, l)
		}
		stats.add(st)
	}
	return all, stats, nil
}

// TracePass traces every seed for one kind in parallel, then accepts the
// candidates sequentially in seed order. Tracing only reads the field, so
// workers share the tracer without synchronization.
func TracePass(ctx context.Context, tracer *Tracer, seeds []orb.Point, kind Kind, separation float64, workers int) ([]Streamline, Stats, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	traces := make([]Trace, len(seeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, seed := range seeds {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			traces[i] = tracer.Trace(seed, kind)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Stats{}, err
	}

	acc := newAcceptor(separation)
	stats := Stats{Seeds: len(seeds)}
	var out []Streamline
	for i, tr := range traces {
		if acc.tooClose(seeds[i]) {
			stats.SeedsSkipped++
			continue
		}
		if tr.Degenerate() {
			stats.DegenerateTerminations++
		}
		if tr.SelfIntersected() {
			stats.SelfIntersections++
		}
		pts, joins := acc.clip(tr)
		stats.Joins += joins
		if len(pts) < 2 || planar.Length(pts) < geom.Epsilon {
			stats.Discarded++
			continue
		}
		acc.add(pts)
		out = append(out, Streamline{Kind: kind, Seed: seeds[i], Points: pts})
		stats.Accepted++
	}
	return out, stats, nil
}

// acceptor indexes the segments of accepted streamlines of one kind.
type acceptor struct {
	sep   float64
	index *spatial.Grid
	segs  [][2]orb.Point
}

func newAcceptor(sep float64) *acceptor {
	return &acceptor{sep: sep, index: spatial.NewGrid(sep)}
}

func (a *acceptor) add(pts orb.LineString) {
	for i := 1; i < len(pts); i++ {
		id := len(a.segs)
		a.segs = append(a.segs, [2]orb.Point{pts[i-1], pts[i]})
		a.index.InsertBound(id, geom.SegmentBound(pts[i-1], pts[i]))
	}
}

// nearest returns the closest point of an accepted segment within r of p.
// Ties keep the lowest segment id.
func (a *acceptor) nearest(p orb.Point, r float64) (orb.Point, bool) {
	best := math.Inf(1)
	var q orb.Point
	for _, id := range a.index.Near(p, r) {
		s := a.segs[id]
		c, _ := geom.ClosestOnSegment(p, s[0], s[1])
		if d := geom.Dist(p, c); d < r && d < best {
			best, q = d, c
		}
	}
	return q, !math.IsInf(best, 1)
}

func (a *acceptor) tooClose(p orb.Point) bool {
	_, ok := a.nearest(p, a.sep)
	return ok
}

// clip walks outward from the seed in both directions and cuts the trace
// where it comes within half the separation of an accepted streamline,
// ending it on the nearest accepted point so the two share a vertex.
func (a *acceptor) clip(tr Trace) (orb.LineString, int) {
	pts := tr.Points
	test := a.sep / 2
	lo, hi := 0, len(pts)
	var head, tail *orb.Point

	for i := tr.SeedIndex + 1; i < len(pts); i++ {
		if q, ok := a.nearest(pts[i], test); ok {
			hi, tail = i, &q
			break
		}
	}
	for i := tr.SeedIndex - 1; i >= 0; i-- {
		if q, ok := a.nearest(pts[i], test); ok {
			lo, head = i+1, &q
			break
		}
	}

	joins := 0
	out := make(orb.LineString, 0, hi-lo+2)
	if head != nil {
		out = append(out, *head)
		joins++
	}
	out = append(out, pts[lo:hi]...)
	if tail != nil {
		out = append(out, *tail)
		joins++
	}
	return out, joins
}
