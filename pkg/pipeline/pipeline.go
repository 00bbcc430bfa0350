// Package pipeline provides the city generation pipeline for citygen.
//
// This package implements the complete field → streamlines → graph →
// blocks → lots pipeline used by the CLI and the HTTP API. By centralizing
// this logic, both entry points share defaults, validation, caching and
// diagnostics.
//
// # Architecture
//
// The pipeline consists of five stages plus optional rendering:
//
//  1. Field: blend the configured basis fields into a tensor field
//  2. Streamlines: trace major then minor streamlines from a seed grid
//  3. Graph: snap and intersect the streamlines into a planar road graph
//  4. Blocks: extract the bounded faces of the graph
//  5. Lots: split every block into lots
//
// Rendering (SVG, GeoJSON, DOT, PNG, PDF) works from the serialized
// [citymap.Document] and can run later against a saved file.
//
// Only invalid configuration and cancellation abort a run. Everything
// else (degenerate field regions, topology anomalies, sliver lots) is
// counted in [Result.Diagnostics].
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Fields: []pipeline.FieldSpec{{Kind: "grid", Angle: 15}},
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	artifacts, err := runner.Render(ctx, result, pipeline.RenderOptions{Formats: []string{"svg"}})
//
// [citymap.Document]: github.com/matzehuels/citygen/pkg/citymap.Document
package pipeline

import (
	"time"

	"github.com/matzehuels/citygen/pkg/blocks"
	"github.com/matzehuels/citygen/pkg/citymap"
	"github.com/matzehuels/citygen/pkg/field"
	"github.com/matzehuels/citygen/pkg/lots"
	"github.com/matzehuels/citygen/pkg/roadgraph"
	"github.com/matzehuels/citygen/pkg/streamline"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultSize is the width and height of the default map extent.
	DefaultSize = 1000.0

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(42)

	// DefaultSeedSpacing is the distance between grid seeds.
	DefaultSeedSpacing = 50.0

	// DefaultStepLength is the integration step.
	DefaultStepLength = 10.0

	// DefaultMaxLength bounds each half of a streamline.
	DefaultMaxLength = 500.0

	// DefaultSeparation is the minimum distance between parallel roads.
	DefaultSeparation = 15.0

	// DefaultSnapRadius merges graph nodes closer than this.
	DefaultSnapRadius = 8.0

	// DefaultMinEdgeLength collapses shorter edges.
	DefaultMinEdgeLength = 5.0

	// DefaultStubLength is the pruning threshold when stub pruning is on.
	DefaultStubLength = 20.0

	// DefaultAlleyLength classes shorter minor streamlines as alleys.
	DefaultAlleyLength = 60.0

	// DefaultMinBlockArea discards smaller faces as noise.
	DefaultMinBlockArea = 100.0

	// DefaultMinLotArea and DefaultMaxLotArea bound lot sizes.
	DefaultMinLotArea = 200.0
	DefaultMaxLotArea = 800.0

	// DefaultIntegrator is the streamline integration scheme.
	DefaultIntegrator = "rk4"
)

// Limits on the work a single run may request. Options beyond them are
// rejected as invalid configuration before any allocation happens.
const (
	// MaxSeeds caps the number of grid seeds implied by bounds and
	// seed_spacing.
	MaxSeeds = 1 << 20

	// MaxSteps caps max_length / step_length, the integration steps per
	// streamline half.
	MaxSteps = 1 << 16
)

// Stage names reported to hooks and logs.
const (
	StageField       = "field"
	StageStreamlines = "streamlines"
	StageGraph       = "graph"
	StageBlocks      = "blocks"
	StageLots        = "lots"
	StageRender      = "render"
)

// Diagnostics reports non-fatal conditions met during a run.
type Diagnostics = citymap.Diagnostics

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this execution. Cache hits get a fresh id.
	RunID string

	// OptionsHash is the content hash of the validated options and keys
	// the result cache.
	OptionsHash string

	// Options are the validated options the run used.
	Options Options

	Field       *field.TensorField
	Streamlines []streamline.Streamline
	Graph       *roadgraph.Graph
	Blocks      []blocks.Block
	Anomalies   []blocks.Anomaly
	Lots        []lots.Lot

	Diagnostics Diagnostics

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the result came from the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Streamlines int           `json:"streamlines"`
	Nodes       int           `json:"nodes"`
	Edges       int           `json:"edges"`
	Blocks      int           `json:"blocks"`
	Lots        int           `json:"lots"`
	FieldTime   time.Duration `json:"field_time"`
	TraceTime   time.Duration `json:"trace_time"`
	GraphTime   time.Duration `json:"graph_time"`
	BlockTime   time.Duration `json:"block_time"`
	LotTime     time.Duration `json:"lot_time"`
	TotalTime   time.Duration `json:"total_time"`
}

// CacheInfo tracks cache hits for a run.
type CacheInfo struct {
	RunHit    bool // Whether the generated city came from cache
	RenderHit bool // Whether all requested artifacts came from cache
}

// Document converts the result into its serialized form.
func (r *Result) Document() citymap.Document {
	nodes, edges := citymap.FromGraph(r.Graph)
	return citymap.Document{
		Version:     citymap.FormatVersion,
		RunID:       r.RunID,
		Seed:        r.Options.Seed,
		Bounds:      citymap.BoundsOf(r.Options.Bound()),
		Streamlines: citymap.FromStreamlines(r.Streamlines),
		Nodes:       nodes,
		Edges:       edges,
		Blocks:      citymap.FromBlocks(r.Blocks),
		Lots:        citymap.FromLots(r.Lots),
		Diagnostics: r.Diagnostics,
	}
}

// count fills the size fields of Stats.
func (r *Result) count() {
	r.Stats.Streamlines = len(r.Streamlines)
	r.Stats.Nodes = r.Graph.NodeCount()
	r.Stats.Edges = r.Graph.EdgeCount()
	r.Stats.Blocks = len(r.Blocks)
	r.Stats.Lots = len(r.Lots)
}
