package config

import (
	"sort"

	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/pipeline"
)

// DefaultPreset is used when neither a file nor a preset is given.
const DefaultPreset = "blend"

var presets = map[string]func() []pipeline.FieldSpec{
	// A Manhattan-style lattice.
	"grid": func() []pipeline.FieldSpec {
		return []pipeline.FieldSpec{{Kind: "grid"}}
	},
	// Ring roads and avenues around a central square.
	"radial": func() []pipeline.FieldSpec {
		return []pipeline.FieldSpec{{Kind: "radial", Center: [2]float64{500, 500}}}
	},
	// A rotated grid with a radial district in the east.
	"blend": func() []pipeline.FieldSpec {
		return []pipeline.FieldSpec{
			{Kind: "grid", Angle: 15},
			{Kind: "radial", Center: [2]float64{650, 400}, Radius: 250, Feather: 200, Strength: 2},
		}
	},
	// A grid bent along a river that doubles as a highway.
	"river": func() []pipeline.FieldSpec {
		return []pipeline.FieldSpec{
			{Kind: "grid"},
			{
				Kind:    "polyline",
				Radius:  120,
				Feather: 150,
				Curve:   [][2]float64{{0, 300}, {250, 380}, {500, 520}, {750, 560}, {1000, 700}},
				Road:    true,
			},
		}
	},
}

// Presets returns the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the options of a built-in preset. Only Fields are set;
// everything else keeps its default.
func Preset(name string) (pipeline.Options, error) {
	fields, ok := presets[name]
	if !ok {
		return pipeline.Options{}, errors.New(errors.ErrCodeInvalidInput,
			"unknown preset %q (available: %v)", name, Presets())
	}
	return pipeline.Options{Fields: fields()}, nil
}
