// Package render turns generated cities into images.
//
// # Overview
//
// The renderers read a [citymap.Document], never the live pipeline
// result, so a city saved to JSON renders the same as a fresh one:
//
//   - [svg]: a map view with roads styled by class, filled blocks and lot
//     outlines
//   - [dot]: the road graph as a Graphviz DOT file with pinned node
//     positions, laid out by neato
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert any SVG using the external rsvg-convert tool
// (from librsvg). Both renderers use them for raster and print output.
//
//	data := svg.Render(doc, svg.WithLots())
//	pdf, err := render.ToPDF(ctx, data)
//	png, err := render.ToPNG(ctx, data, 2.0) // 2x scale
//
// [citymap.Document]: github.com/matzehuels/citygen/pkg/citymap.Document
// [svg]: github.com/matzehuels/citygen/pkg/render/svg
// [dot]: github.com/matzehuels/citygen/pkg/render/dot
package render
