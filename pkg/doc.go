// Package pkg provides the core libraries for citygen procedural road
// network generation.
//
// # Overview
//
// citygen grows a city from a tensor field: streamlines traced along the
// field's major and minor eigenvectors become roads, the roads become a
// planar graph, the graph's faces become blocks, and blocks are cut into
// lots. The pkg directory is organized into three areas:
//
//  1. Geometry and generation: [geom], [field], [spatial], [streamline],
//     [roadgraph], [blocks], [lots]
//  2. Orchestration: [pipeline] (field → streamlines → graph → blocks → lots)
//     and [config] (city files and presets)
//  3. Infrastructure: [cache], [store], [httputil], [observability], [errors]
//     plus the [citymap] document and [render] outputs
//
// # Architecture
//
// The typical data flow:
//
//	City file / preset
//	         ↓
//	    [field] package (basis fields blended into a tensor field)
//	         ↓
//	    [streamline] package (major and minor hyperstreamlines)
//	         ↓
//	    [roadgraph] package (snapped planar graph)
//	         ↓
//	    [blocks] + [lots] packages (faces and OBB subdivision)
//	         ↓
//	    JSON/GeoJSON/SVG/PNG/PDF/DOT output
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/citygen/pkg/config"
//	    "github.com/matzehuels/citygen/pkg/pipeline"
//	)
//
//	opts, _ := config.Preset("blend")
//	opts.Seed = 7
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(context.Background(), opts)
//	if err != nil {
//	    return err
//	}
//	artifacts, _ := runner.Render(ctx, result, pipeline.RenderOptions{
//	    Formats: []string{"svg", "geojson"},
//	})
//
// # Infrastructure
//
// [cache] stores generated documents and rendered images keyed by the
// options hash. FileCache backs the CLI; RedisCache backs the API server.
// [store] keeps run history in JSON files or MongoDB.
//
// [observability] exposes hooks for pipeline stages, cache operations and
// HTTP requests without tying the libraries to a metrics backend.
package pkg
