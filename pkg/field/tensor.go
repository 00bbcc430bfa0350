package field

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/matzehuels/citygen/pkg/geom"
)

// DefaultEpsilon is the total-weight threshold below which a sample is
// degenerate.
const DefaultEpsilon = 1e-6

// Tensor is a symmetric traceless 2x2 tensor stored as (R, S) =
// (cos 2θ, sin 2θ) scaled by magnitude. Directions θ and θ+π map to the
// same tensor.
type Tensor struct {
	R, S float64
}

// FromAngle returns the unit tensor for direction theta (radians).
func FromAngle(theta float64) Tensor {
	return Tensor{R: math.Cos(2 * theta), S: math.Sin(2 * theta)}
}

// FromVector returns the unit tensor for the direction of v.
func FromVector(v orb.Point) Tensor {
	if geom.Len(v) < geom.Epsilon {
		return Tensor{}
	}
	return FromAngle(geom.Angle(v))
}

// Add returns t + o.
func (t Tensor) Add(o Tensor) Tensor { return Tensor{t.R + o.R, t.S + o.S} }

// Scale returns t * w.
func (t Tensor) Scale(w float64) Tensor { return Tensor{t.R * w, t.S * w} }

// Norm returns the tensor magnitude.
func (t Tensor) Norm() float64 { return math.Hypot(t.R, t.S) }

// MajorAngle returns the angle of the dominant eigenvector.
func (t Tensor) MajorAngle() float64 { return math.Atan2(t.S, t.R) / 2 }

// Sample is the result of querying a TensorField.
type Sample struct {
	Major, Minor orb.Point
	// Weight is the total unnormalized influence at the point.
	Weight float64
	// Degenerate is set when the default direction was returned because
	// no basis had meaningful influence or their tensors cancelled out.
	Degenerate bool
}

// TensorField blends an ordered set of basis fields over a map extent.
type TensorField struct {
	bases        []Basis
	bounds       orb.Bound
	defaultAngle float64
	epsilon      float64
}

// Option configures a TensorField.
type Option func(*TensorField)

// WithDefaultAngle sets the fallback major direction (radians).
func WithDefaultAngle(theta float64) Option {
	return func(f *TensorField) { f.defaultAngle = theta }
}

// WithEpsilon sets the degenerate weight threshold.
func WithEpsilon(eps float64) Option {
	return func(f *TensorField) { f.epsilon = eps }
}

// New validates bases and returns an immutable field.
func New(bounds orb.Bound, bases []Basis, opts ...Option) (*TensorField, error) {
	if len(bases) == 0 {
		return nil, fmt.Errorf("at least one basis field is required")
	}
	if bounds.Max[0] <= bounds.Min[0] || bounds.Max[1] <= bounds.Min[1] {
		return nil, fmt.Errorf("bounds must have positive width and height")
	}
	for i, b := range bases {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
	}
	f := &TensorField{
		bases:   append([]Basis(nil), bases...),
		bounds:  bounds,
		epsilon: DefaultEpsilon,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Bounds returns the map extent.
func (f *TensorField) Bounds() orb.Bound { return f.bounds }

// Bases returns a copy of the basis list.
func (f *TensorField) Bases() []Basis { return append([]Basis(nil), f.bases...) }

// Sample returns the blended major and minor directions at p. Both are
// unit vectors and Minor is Major rotated 90 degrees counter-clockwise.
func (f *TensorField) Sample(p orb.Point) Sample {
	var sum Tensor
	var total float64
	for _, b := range f.bases {
		t, w := b.Contribution(p)
		if w <= 0 {
			continue
		}
		sum = sum.Add(t.Scale(w))
		total += w
	}

	theta := f.defaultAngle
	degenerate := true
	if total >= f.epsilon {
		blended := sum.Scale(1 / total)
		if blended.Norm() >= f.epsilon {
			theta = blended.MajorAngle()
			degenerate = false
		}
	}
	major := geom.FromAngle(theta)
	return Sample{Major: major, Minor: geom.Perp(major), Weight: total, Degenerate: degenerate}
}
