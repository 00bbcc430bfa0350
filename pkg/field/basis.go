// Package field implements the blended direction field that steers road
// tracing.
//
// A [TensorField] is an ordered list of [Basis] fields. Each basis is one
// of a closed set of kinds ([Grid], [Radial], [PolylineAligned]) and
// contributes a direction plus a distance-based weight at every point.
// Directions are blended as doubled-angle tensors so that opposite vectors
// describe the same road direction and never cancel each other out.
//
// Fields are immutable once built and safe to share between goroutines.
package field

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/matzehuels/citygen/pkg/geom"
)

// Kind identifies the analytic form of a basis field.
type Kind int

const (
	// Grid has one constant direction.
	Grid Kind = iota
	// Radial points away from a focus point.
	Radial
	// PolylineAligned follows the nearest segment of a reference curve.
	PolylineAligned
)

var kindNames = map[Kind]string{
	Grid:            "grid",
	Radial:          "radial",
	PolylineAligned: "polyline",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind converts a configuration name into a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q (must be one of: grid, radial, polyline)", s)
}

// Falloff selects how a basis field's weight decays with distance.
type Falloff int

const (
	// Smooth keeps full weight inside Radius and eases to zero at
	// Radius+Feather.
	Smooth Falloff = iota
	// Exponential decays as exp(-d/Radius), reaching zero at Radius+Feather.
	Exponential
	// Global ignores distance.
	Global
)

var falloffNames = map[Falloff]string{
	Smooth:      "smooth",
	Exponential: "exponential",
	Global:      "global",
}

func (f Falloff) String() string {
	if s, ok := falloffNames[f]; ok {
		return s
	}
	return fmt.Sprintf("falloff(%d)", int(f))
}

// ParseFalloff converts a configuration name into a Falloff. The empty
// string selects Smooth.
func ParseFalloff(s string) (Falloff, error) {
	if s == "" {
		return Smooth, nil
	}
	for f, name := range falloffNames {
		if name == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown falloff %q (must be one of: smooth, exponential, global)", s)
}

// Basis is a single analytic direction field. Only the fields relevant to
// its Kind are used; construct it with NewGrid, NewRadial or NewPolyline.
type Basis struct {
	Kind     Kind
	Center   orb.Point
	Radius   float64
	Feather  float64
	Falloff  Falloff
	Strength float64

	// Angle is the major direction of a Grid field, in radians.
	Angle float64
	// Focus is the singular point of a Radial field.
	Focus orb.Point
	// FocusGuard is the radius around Focus where a Radial field has no
	// influence.
	FocusGuard float64
	// Curve is the reference polyline of a PolylineAligned field.
	Curve orb.LineString
}

// NewGrid returns a grid field with the given major angle (radians).
func NewGrid(center orb.Point, radius, angle float64) Basis {
	return Basis{Kind: Grid, Center: center, Radius: radius, Feather: radius, Strength: 1, Angle: angle}
}

// NewRadial returns a radial field centred on focus.
func NewRadial(focus orb.Point, radius float64) Basis {
	return Basis{Kind: Radial, Center: focus, Focus: focus, Radius: radius, Feather: radius, Strength: 1}
}

// NewPolyline returns a field aligned with curve. Distances are measured
// to the curve itself.
func NewPolyline(curve orb.LineString, radius float64) Basis {
	var center orb.Point
	if len(curve) > 0 {
		center = geom.PointAlong(curve, 0.5)
	}
	return Basis{Kind: PolylineAligned, Center: center, Curve: curve, Radius: radius, Feather: radius, Strength: 1}
}

// Validate checks the parameters required by the basis kind.
func (b Basis) Validate() error {
	if b.Radius < 0 || isBad(b.Radius) {
		return fmt.Errorf("%s field: radius must be >= 0, got %v", b.Kind, b.Radius)
	}
	if b.Feather < 0 || isBad(b.Feather) {
		return fmt.Errorf("%s field: feather must be >= 0, got %v", b.Kind, b.Feather)
	}
	if b.Strength <= 0 || isBad(b.Strength) {
		return fmt.Errorf("%s field: strength must be > 0, got %v", b.Kind, b.Strength)
	}
	if b.FocusGuard < 0 {
		return fmt.Errorf("%s field: focus guard must be >= 0", b.Kind)
	}
	switch b.Kind {
	case Grid:
		if isBad(b.Angle) {
			return fmt.Errorf("grid field: invalid angle")
		}
	case Radial:
		if isBad(b.Focus[0]) || isBad(b.Focus[1]) {
			return fmt.Errorf("radial field: invalid focus")
		}
	case PolylineAligned:
		if len(b.Curve) < 2 {
			return fmt.Errorf("polyline field: curve needs at least 2 points, got %d", len(b.Curve))
		}
		if planar.Length(b.Curve) < geom.Epsilon {
			return fmt.Errorf("polyline field: curve has zero length")
		}
	default:
		return fmt.Errorf("unknown field kind %d", int(b.Kind))
	}
	return nil
}

// Contribution returns the tensor and weight the basis adds at p. A zero
// weight means the basis has no influence there.
func (b Basis) Contribution(p orb.Point) (Tensor, float64) {
	switch b.Kind {
	case Grid:
		return FromAngle(b.Angle), b.weight(geom.Dist(p, b.Center))

	case Radial:
		d := geom.Dist(p, b.Focus)
		if d <= b.FocusGuard || d < geom.Epsilon {
			return Tensor{}, 0
		}
		return FromVector(geom.Sub(p, b.Focus)), b.weight(d)

	case PolylineAligned:
		dir, d := b.nearestSegment(p)
		return FromVector(dir), b.weight(d)
	}
	return Tensor{}, 0
}

func (b Basis) weight(d float64) float64 {
	if b.Falloff == Global || b.Radius <= 0 {
		return b.Strength
	}
	feather := b.Feather
	switch b.Falloff {
	case Exponential:
		if feather > 0 && d >= b.Radius+feather {
			return 0
		}
		return b.Strength * math.Exp(-d/b.Radius)
	default:
		if d <= b.Radius {
			return b.Strength
		}
		if feather <= 0 || d >= b.Radius+feather {
			return 0
		}
		t := (d - b.Radius) / feather
		return b.Strength * (1 - t*t*(3-2*t))
	}
}

// nearestSegment returns the direction of the curve segment closest to p
// and the distance to it. Ties keep the earliest segment.
func (b Basis) nearestSegment(p orb.Point) (orb.Point, float64) {
	best := math.Inf(1)
	var dir orb.Point
	for i := 1; i < len(b.Curve); i++ {
		a, c := b.Curve[i-1], b.Curve[i]
		if geom.Dist2(a, c) < geom.Epsilon {
			continue
		}
		if d := planar.DistanceFromSegment(a, c, p); d < best {
			best = d
			dir = geom.Sub(c, a)
		}
	}
	return dir, best
}

func isBad(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }
