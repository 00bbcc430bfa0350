package streamline

import (
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"
)

// Seeds lays seed points on a regular grid over bounds, spacing apart,
// in row-major order (by y, then x). A non-zero jitter in [0,1] displaces
// each seed by up to jitter*spacing/2 on each axis using a PCG stream
// derived from seed; jittered points are clamped to the bounds.
func Seeds(bounds orb.Bound, spacing, jitter float64, seed uint64) []orb.Point {
	if spacing <= 0 || math.IsNaN(spacing) {
		return nil
	}
	var rng *rand.Rand
	if jitter > 0 {
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}

	nx := int(math.Floor((bounds.Max[0]-bounds.Min[0])/spacing+1e-9)) + 1
	ny := int(math.Floor((bounds.Max[1]-bounds.Min[1])/spacing+1e-9)) + 1
	out := make([]orb.Point, 0, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			p := orb.Point{bounds.Min[0] + float64(i)*spacing, bounds.Min[1] + float64(j)*spacing}
			if rng != nil {
				amp := jitter * spacing / 2
				p[0] = clamp(p[0]+(rng.Float64()*2-1)*amp, bounds.Min[0], bounds.Max[0])
				p[1] = clamp(p[1]+(rng.Float64()*2-1)*amp, bounds.Min[1], bounds.Max[1])
			}
			out = append(out, p)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
