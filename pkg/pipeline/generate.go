package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/matzehuels/citygen/pkg/blocks"
	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/field"
	"github.com/matzehuels/citygen/pkg/lots"
	"github.com/matzehuels/citygen/pkg/observability"
	"github.com/matzehuels/citygen/pkg/roadgraph"
	"github.com/matzehuels/citygen/pkg/streamline"
)

// BuildField blends the configured basis fields over the map extent.
// Options must already be validated.
func BuildField(opts Options) (*field.TensorField, error) {
	bases := make([]field.Basis, 0, len(opts.Fields))
	for i, spec := range opts.Fields {
		b, err := spec.Basis(opts.StepLength)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "fields[%d]", i)
		}
		bases = append(bases, b)
	}
	f, err := field.New(opts.Bound(), bases, field.WithDefaultAngle(opts.DefaultAngle*math.Pi/180))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "build field")
	}
	return f, nil
}

// TraceOptions maps pipeline options to tracer options.
func TraceOptions(opts Options) streamline.Options {
	integrator, _ := streamline.ParseIntegrator(opts.Integrator)
	return streamline.Options{
		TraceOptions: streamline.TraceOptions{
			StepLength:    opts.StepLength,
			MaxLength:     opts.MaxLength,
			SelfTolerance: opts.StepLength / 2,
			Integrator:    integrator,
		},
		SeedSpacing:     opts.SeedSpacing,
		SeedJitter:      opts.SeedJitter,
		Seed:            opts.Seed,
		Separation:      opts.Separation,
		MinorSeparation: opts.MinorSeparation,
		Workers:         opts.Workers,
	}
}

// Polylines classes the traced streamlines into graph input. Road curves
// of polyline fields come first as highways, then majors, then minors;
// minor streamlines shorter than AlleyLength become alleys.
func Polylines(lines []streamline.Streamline, opts Options) []roadgraph.Polyline {
	var out []roadgraph.Polyline
	for _, spec := range opts.Fields {
		if spec.Road && len(spec.Curve) >= 2 {
			out = append(out, roadgraph.Polyline{Points: spec.CurvePoints(), Class: roadgraph.Highway})
		}
	}
	for _, l := range lines {
		class := roadgraph.Major
		if l.Kind == streamline.Minor {
			class = roadgraph.Minor
			if l.Length() < opts.AlleyLength {
				class = roadgraph.Alley
			}
		}
		out = append(out, roadgraph.Polyline{Points: l.Points, Class: class})
	}
	return out
}

// Generate runs every stage once without caching. Stage hooks fire for
// each stage; the first error aborts the run and discards partial state.
func Generate(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	start := time.Now()
	res := &Result{Options: opts}

	err := stage(ctx, StageField, &res.Stats.FieldTime, func() error {
		f, err := BuildField(opts)
		res.Field = f
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("built tensor field", "bases", len(opts.Fields), "duration", res.Stats.FieldTime)

	err = stage(ctx, StageStreamlines, &res.Stats.TraceTime, func() error {
		lines, st, err := streamline.Generate(ctx, res.Field, TraceOptions(opts))
		res.Streamlines = lines
		res.Diagnostics.Tracing = st
		return err
	})
	if err != nil {
		return nil, err
	}
	tr := res.Diagnostics.Tracing
	logger.Info("traced streamlines",
		"accepted", tr.Accepted,
		"discarded", tr.Discarded,
		"duration", res.Stats.TraceTime)
	if tr.DegenerateTerminations > 0 {
		logger.Debug("degenerate field regions", "terminations", tr.DegenerateTerminations)
	}

	err = stage(ctx, StageGraph, &res.Stats.GraphTime, func() error {
		g, st := roadgraph.Build(Polylines(res.Streamlines, opts), roadgraph.BuildOptions{
			SnapRadius:    opts.SnapRadius,
			CellSize:      opts.StepLength,
			MinEdgeLength: opts.MinEdgeLength,
			PruneStubs:    opts.PruneStubs,
			StubLength:    opts.StubLength,
		})
		res.Graph = g
		res.Diagnostics.Graph = st
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("built road graph",
		"nodes", res.Graph.NodeCount(),
		"edges", res.Graph.EdgeCount(),
		"duration", res.Stats.GraphTime)

	err = stage(ctx, StageBlocks, &res.Stats.BlockTime, func() error {
		r := blocks.Extract(res.Graph, blocks.Options{MinArea: opts.MinBlockArea})
		res.Blocks = r.Blocks
		res.Anomalies = r.Anomalies
		res.Diagnostics.Blocks = r.Stats
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("extracted blocks",
		"blocks", len(res.Blocks),
		"anomalies", len(res.Anomalies),
		"duration", res.Stats.BlockTime)

	err = stage(ctx, StageLots, &res.Stats.LotTime, func() error {
		ls, st, err := lots.SubdivideAll(ctx, res.Blocks, lots.Options{
			MinArea:           opts.MinLotArea,
			MaxArea:           opts.MaxLotArea,
			MinSplittableArea: opts.MinSplittableArea,
			MaxLots:           opts.MaxLotsPerBlock,
		})
		res.Lots = ls
		res.Diagnostics.Lots = st
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("subdivided lots",
		"lots", len(res.Lots),
		"undersized", res.Diagnostics.Lots.Undersized,
		"duration", res.Stats.LotTime)

	res.Diagnostics.DiscardedStreamlines = tr.Discarded
	res.Diagnostics.DegenerateTerminations = tr.DegenerateTerminations
	res.Diagnostics.TopologyAnomalies = res.Diagnostics.Blocks.Anomalies
	res.Diagnostics.SliverLots = res.Diagnostics.Lots.Undersized
	res.Stats.TotalTime = time.Since(start)
	res.count()
	return res, nil
}

// stage runs fn between hook notifications and records its duration.
// A cancelled context before or after fn turns into a CANCELLED error.
func stage(ctx context.Context, name string, elapsed *time.Duration, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return errors.Cancelled(err, name)
	}
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name)
	start := time.Now()

	err := fn()
	if err == nil {
		err = ctx.Err()
	}
	*elapsed = time.Since(start)

	switch {
	case err == nil:
	case ctx.Err() != nil:
		err = errors.Cancelled(ctx.Err(), name)
	default:
		err = fmt.Errorf("%s: %w", name, err)
	}
	hooks.OnStageComplete(ctx, name, *elapsed, err)
	return err
}
