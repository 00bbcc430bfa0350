package pipeline

import (
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/citygen/pkg/cache"
	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/field"
	"github.com/matzehuels/citygen/pkg/streamline"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a generation run.
// This struct supports JSON, TOML and YAML so the same value can come from
// an API request or a city file.
type Options struct {
	// Map extent as [minX, minY, maxX, maxY].
	Bounds [4]float64 `json:"bounds" toml:"bounds" yaml:"bounds"`

	// Fields are the basis fields blended into the tensor field, in order.
	Fields []FieldSpec `json:"fields" toml:"fields" yaml:"fields"`

	// DefaultAngle is the fallback major direction in degrees where the
	// field is degenerate.
	DefaultAngle float64 `json:"default_angle,omitempty" toml:"default_angle" yaml:"default_angle"`

	Seed uint64 `json:"seed" toml:"seed" yaml:"seed"`

	// Tracing options
	SeedSpacing     float64 `json:"seed_spacing" toml:"seed_spacing" yaml:"seed_spacing"`
	SeedJitter      float64 `json:"seed_jitter,omitempty" toml:"seed_jitter" yaml:"seed_jitter"`
	StepLength      float64 `json:"step_length" toml:"step_length" yaml:"step_length"`
	MaxLength       float64 `json:"max_length" toml:"max_length" yaml:"max_length"`
	Integrator      string  `json:"integrator" toml:"integrator" yaml:"integrator"`
	Separation      float64 `json:"separation" toml:"separation" yaml:"separation"`
	MinorSeparation float64 `json:"minor_separation,omitempty" toml:"minor_separation" yaml:"minor_separation"`

	// Graph options
	SnapRadius    float64 `json:"snap_radius" toml:"snap_radius" yaml:"snap_radius"`
	MinEdgeLength float64 `json:"min_edge_length" toml:"min_edge_length" yaml:"min_edge_length"`
	PruneStubs    bool    `json:"prune_stubs,omitempty" toml:"prune_stubs" yaml:"prune_stubs"`
	StubLength    float64 `json:"stub_length,omitempty" toml:"stub_length" yaml:"stub_length"`
	AlleyLength   float64 `json:"alley_length,omitempty" toml:"alley_length" yaml:"alley_length"`

	// Block and lot options
	MinBlockArea      float64 `json:"min_block_area" toml:"min_block_area" yaml:"min_block_area"`
	MinLotArea        float64 `json:"min_lot_area" toml:"min_lot_area" yaml:"min_lot_area"`
	MaxLotArea        float64 `json:"max_lot_area" toml:"max_lot_area" yaml:"max_lot_area"`
	MinSplittableArea float64 `json:"min_splittable_area,omitempty" toml:"min_splittable_area" yaml:"min_splittable_area"`
	MaxLotsPerBlock   int     `json:"max_lots_per_block,omitempty" toml:"max_lots_per_block" yaml:"max_lots_per_block"`

	// Runtime options (not serialized, not part of the cache key)
	Workers int         `json:"-" toml:"-" yaml:"-" bson:"-"`
	Refresh bool        `json:"-" toml:"-" yaml:"-" bson:"-"`
	Logger  *log.Logger `json:"-" toml:"-" yaml:"-" bson:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// FieldSpec describes one basis field in configuration units (degrees,
// plain coordinate pairs).
type FieldSpec struct {
	// Kind is "grid", "radial" or "polyline".
	Kind   string     `json:"kind" toml:"kind" yaml:"kind"`
	Center [2]float64 `json:"center" toml:"center" yaml:"center"`
	// Radius of full influence; zero means global.
	Radius float64 `json:"radius,omitempty" toml:"radius" yaml:"radius"`
	// Feather is the fade distance beyond Radius; zero means Radius.
	Feather float64 `json:"feather,omitempty" toml:"feather" yaml:"feather"`
	// Falloff is "smooth" (default), "exponential" or "global".
	Falloff string `json:"falloff,omitempty" toml:"falloff" yaml:"falloff"`
	// Strength scales the weight; zero means 1.
	Strength float64 `json:"strength,omitempty" toml:"strength" yaml:"strength"`
	// Angle is the grid's major direction in degrees.
	Angle float64 `json:"angle,omitempty" toml:"angle" yaml:"angle"`
	// FocusGuard is the radial dead zone; zero means the step length.
	FocusGuard float64 `json:"focus_guard,omitempty" toml:"focus_guard" yaml:"focus_guard"`
	// Curve is the polyline field's reference curve.
	Curve [][2]float64 `json:"curve,omitempty" toml:"curve" yaml:"curve"`
	// Road injects the curve as a highway.
	Road bool `json:"road,omitempty" toml:"road" yaml:"road"`
}

// CurvePoints returns the curve as a line string.
func (s FieldSpec) CurvePoints() orb.LineString {
	if len(s.Curve) == 0 {
		return nil
	}
	ls := make(orb.LineString, len(s.Curve))
	for i, p := range s.Curve {
		ls[i] = orb.Point(p)
	}
	return ls
}

// Basis converts the spec into a field basis. guard is used when the spec
// leaves FocusGuard unset.
func (s FieldSpec) Basis(guard float64) (field.Basis, error) {
	kind, err := field.ParseKind(s.Kind)
	if err != nil {
		return field.Basis{}, err
	}
	falloff, err := field.ParseFalloff(s.Falloff)
	if err != nil {
		return field.Basis{}, err
	}

	center := orb.Point(s.Center)
	var b field.Basis
	switch kind {
	case field.Grid:
		b = field.NewGrid(center, s.Radius, s.Angle*math.Pi/180)
	case field.Radial:
		b = field.NewRadial(center, s.Radius)
		b.FocusGuard = guard
		if s.FocusGuard > 0 {
			b.FocusGuard = s.FocusGuard
		}
	case field.PolylineAligned:
		b = field.NewPolyline(s.CurvePoints(), s.Radius)
	}
	b.Falloff = falloff
	if s.Feather > 0 {
		b.Feather = s.Feather
	}
	if s.Strength != 0 {
		b.Strength = s.Strength
	}
	return b, b.Validate()
}

// Bound returns the map extent.
func (o *Options) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{o.Bounds[0], o.Bounds[1]},
		Max: orb.Point{o.Bounds[2], o.Bounds[3]},
	}
}

// =============================================================================
// Options Methods
// =============================================================================

// SetDefaults fills unset numeric options. Fields are never defaulted: a
// run needs at least one explicit basis field.
func (o *Options) SetDefaults() {
	if o.Bounds == [4]float64{} {
		o.Bounds = [4]float64{0, 0, DefaultSize, DefaultSize}
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.SeedSpacing == 0 {
		o.SeedSpacing = DefaultSeedSpacing
	}
	if o.StepLength == 0 {
		o.StepLength = DefaultStepLength
	}
	if o.MaxLength == 0 {
		o.MaxLength = DefaultMaxLength
	}
	if o.Integrator == "" {
		o.Integrator = DefaultIntegrator
	}
	if o.Separation == 0 {
		o.Separation = DefaultSeparation
	}
	if o.SnapRadius == 0 {
		o.SnapRadius = DefaultSnapRadius
	}
	if o.MinEdgeLength == 0 {
		o.MinEdgeLength = DefaultMinEdgeLength
	}
	if o.StubLength == 0 {
		o.StubLength = DefaultStubLength
	}
	if o.AlleyLength == 0 {
		o.AlleyLength = DefaultAlleyLength
	}
	if o.MinBlockArea == 0 {
		o.MinBlockArea = DefaultMinBlockArea
	}
	if o.MinLotArea == 0 {
		o.MinLotArea = DefaultMinLotArea
	}
	if o.MaxLotArea == 0 {
		o.MaxLotArea = DefaultMaxLotArea
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks every option and returns an INVALID_CONFIG error listing
// each offending field.
func (o *Options) Validate() error {
	v := errors.NewValidator()

	b := o.Bound()
	v.Check(finite(o.Bounds[:]...), "bounds", "must be finite")
	v.Check(b.Max[0] > b.Min[0] && b.Max[1] > b.Min[1], "bounds",
		"must have positive width and height, got %v", o.Bounds)

	v.Check(len(o.Fields) > 0, "fields", "at least one basis field is required")
	for i, spec := range o.Fields {
		prefix := fmt.Sprintf("fields[%d]", i)
		if _, err := spec.Basis(o.StepLength); err != nil {
			v.Add(prefix, "%s", err.Error())
			continue
		}
		v.Check(finite(spec.Center[:]...), prefix+".center", "must be finite")
		v.Check(!spec.Road || spec.Kind == field.PolylineAligned.String(),
			prefix+".road", "only polyline fields can be roads")
	}

	v.Check(o.StepLength > 0, "step_length", "must be positive, got %v", o.StepLength)
	v.Check(o.MaxLength >= o.StepLength, "max_length", "must be >= step_length, got %v", o.MaxLength)
	v.Check(o.SeedSpacing > 0, "seed_spacing", "must be positive, got %v", o.SeedSpacing)
	if o.StepLength > 0 {
		steps := o.MaxLength / o.StepLength
		v.Check(steps <= MaxSteps, "max_length",
			"allows %.3g steps of step_length, limit is %d", steps, MaxSteps)
	}
	if o.SeedSpacing > 0 {
		seeds := (b.Max[0] - b.Min[0] + o.SeedSpacing) / o.SeedSpacing *
			((b.Max[1] - b.Min[1] + o.SeedSpacing) / o.SeedSpacing)
		v.Check(seeds <= MaxSeeds, "seed_spacing",
			"yields %.3g seeds over bounds, limit is %d", seeds, MaxSeeds)
	}
	v.Check(o.SeedJitter >= 0 && o.SeedJitter <= 1, "seed_jitter", "must be in [0,1], got %v", o.SeedJitter)
	if _, err := streamline.ParseIntegrator(o.Integrator); err != nil {
		v.Add("integrator", "%s", err.Error())
	}
	v.Check(o.Separation > 0, "separation", "must be positive, got %v", o.Separation)
	v.Check(o.MinorSeparation >= 0, "minor_separation", "must be >= 0, got %v", o.MinorSeparation)

	v.Check(o.SnapRadius >= 0, "snap_radius", "must be >= 0, got %v", o.SnapRadius)
	v.Check(o.MinEdgeLength >= 0, "min_edge_length", "must be >= 0, got %v", o.MinEdgeLength)
	v.Check(o.StubLength >= 0, "stub_length", "must be >= 0, got %v", o.StubLength)
	v.Check(o.AlleyLength >= 0, "alley_length", "must be >= 0, got %v", o.AlleyLength)

	v.Check(o.MinBlockArea >= 0, "min_block_area", "must be >= 0, got %v", o.MinBlockArea)
	v.Check(o.MinLotArea > 0, "min_lot_area", "must be positive, got %v", o.MinLotArea)
	v.Check(o.MaxLotArea >= o.MinLotArea, "max_lot_area",
		"must be >= min_lot_area (%v), got %v", o.MinLotArea, o.MaxLotArea)
	v.Check(o.MinSplittableArea >= 0, "min_splittable_area", "must be >= 0, got %v", o.MinSplittableArea)
	v.Check(o.MaxLotsPerBlock >= 0, "max_lots_per_block", "must be >= 0, got %d", o.MaxLotsPerBlock)
	v.Check(o.Workers >= 0, "workers", "must be >= 0, got %d", o.Workers)

	return v.Err()
}

// ValidateAndSetDefaults applies defaults then validates.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := o.Validate(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// Hash returns the content hash of the options. Runtime-only options do
// not take part.
func (o *Options) Hash() (string, error) {
	return cache.HashJSON(o)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
