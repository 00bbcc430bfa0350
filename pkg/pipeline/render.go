package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/matzehuels/citygen/pkg/cache"
	"github.com/matzehuels/citygen/pkg/citymap"
	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/render"
	"github.com/matzehuels/citygen/pkg/render/dot"
	"github.com/matzehuels/citygen/pkg/render/svg"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatGeoJSON  = "geojson"
	FormatSVG      = "svg"
	FormatPNG      = "png"
	FormatPDF      = "pdf"
	FormatDOT      = "dot"
	FormatGraphSVG = "graph.svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON:     true,
	FormatGeoJSON:  true,
	FormatSVG:      true,
	FormatPNG:      true,
	FormatPDF:      true,
	FormatDOT:      true,
	FormatGraphSVG: true,
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: json, geojson, svg, png, pdf, dot, graph.svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// RenderOptions selects output formats and map layers.
type RenderOptions struct {
	Formats []string `json:"formats,omitempty" toml:"formats" yaml:"formats"`
	// Width of SVG/PNG/PDF maps in pixels; zero means svg.DefaultWidth.
	Width       int  `json:"width,omitempty" toml:"width" yaml:"width"`
	HideBlocks  bool `json:"hide_blocks,omitempty" toml:"hide_blocks" yaml:"hide_blocks"`
	Lots        bool `json:"lots,omitempty" toml:"lots" yaml:"lots"`
	Nodes       bool `json:"nodes,omitempty" toml:"nodes" yaml:"nodes"`
	Streamlines bool `json:"streamlines,omitempty" toml:"streamlines" yaml:"streamlines"`
	// Labels shows node ids in DOT output.
	Labels bool `json:"labels,omitempty" toml:"labels" yaml:"labels"`
}

// SetDefaults selects SVG when no format was requested.
func (r *RenderOptions) SetDefaults() {
	if len(r.Formats) == 0 {
		r.Formats = []string{FormatSVG}
	}
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (r RenderOptions) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format: format,
		Width:  r.Width,
		Layers: r.layers(),
	}
}

// layers encodes the enabled layers and labels for cache keys.
func (r RenderOptions) layers() string {
	var parts []string
	if !r.HideBlocks {
		parts = append(parts, "blocks")
	}
	if r.Lots {
		parts = append(parts, "lots")
	}
	if r.Nodes {
		parts = append(parts, "nodes")
	}
	if r.Streamlines {
		parts = append(parts, "streamlines")
	}
	if r.Labels {
		parts = append(parts, "labels")
	}
	return strings.Join(parts, ",")
}

func (r RenderOptions) svgOptions() []svg.Option {
	var opts []svg.Option
	if r.Width > 0 {
		opts = append(opts, svg.WithWidth(float64(r.Width)))
	}
	if r.HideBlocks {
		opts = append(opts, svg.WithoutBlocks())
	}
	if r.Lots {
		opts = append(opts, svg.WithLots())
	}
	if r.Nodes {
		opts = append(opts, svg.WithNodes())
	}
	if r.Streamlines {
		opts = append(opts, svg.WithStreamlines())
	}
	return opts
}

// Render generates output artifacts for a document in the requested
// formats. The map SVG is rendered once and shared by PNG and PDF.
func Render(ctx context.Context, doc citymap.Document, opts RenderOptions) (map[string][]byte, error) {
	opts.SetDefaults()
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	var mapSVG []byte
	mapImage := func() []byte {
		if mapSVG == nil {
			mapSVG = svg.Render(doc, opts.svgOptions()...)
		}
		return mapSVG
	}

	for _, format := range sortedFormats(opts.Formats) {
		var data []byte
		var err error

		switch format {
		case FormatJSON:
			data, err = citymap.Marshal(doc)
		case FormatGeoJSON:
			data, err = citymap.MarshalGeoJSON(doc)
		case FormatSVG:
			data = mapImage()
		case FormatPNG:
			data, err = render.ToPNG(ctx, mapImage(), 2.0)
		case FormatPDF:
			data, err = render.ToPDF(ctx, mapImage())
		case FormatDOT:
			data = []byte(dot.ToDOT(doc, dot.Options{Labels: opts.Labels}))
		case FormatGraphSVG:
			data, err = dot.RenderSVG(ctx, dot.ToDOT(doc, dot.Options{Labels: opts.Labels}))
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// sortedFormats dedupes formats and renders them in a stable order.
func sortedFormats(formats []string) []string {
	seen := make(map[string]bool, len(formats))
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}
