package pipeline

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/citygen/pkg/cache"
	"github.com/matzehuels/citygen/pkg/citymap"
	"github.com/matzehuels/citygen/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner holds only the cache, keyer, logger and regenerated
// subscribers; it doesn't store pipeline results. Multiple goroutines can
// safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	mu          sync.Mutex
	subscribers []func(*Result)
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// OnRegenerated registers fn to be called after every successful Execute,
// cache hits included. Subscribers run synchronously on the executing
// goroutine in registration order.
func (r *Runner) OnRegenerated(fn func(*Result)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Execute runs the complete field → streamlines → graph → blocks → lots
// pipeline with caching. Invalid options fail with INVALID_CONFIG before
// any stage starts.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	start := time.Now()
	hooks := observability.Pipeline()
	runID := uuid.NewString()

	hash, err := opts.Hash()
	if err != nil {
		return nil, err
	}
	key := r.Keyer.RunKey(hash)

	var result *Result
	if !opts.Refresh {
		result = r.fromCache(ctx, key, opts)
	}
	hit := result != nil

	if !hit {
		result, err = Generate(ctx, opts)
		if err != nil {
			hooks.OnRunComplete(ctx, runID, false, time.Since(start), err)
			return nil, err
		}
		if data, err := citymap.Marshal(result.Document()); err == nil {
			if err := r.Cache.Set(ctx, key, data, cache.TTLRun); err != nil {
				r.Logger.Warn("cache write failed", "error", err)
			}
		}
	}

	result.RunID = runID
	result.OptionsHash = hash
	result.CacheInfo.RunHit = hit
	if hit {
		result.Stats.TotalTime = time.Since(start)
	}

	r.Logger.Info("generated city",
		"run", runID,
		"cached", hit,
		"nodes", result.Stats.Nodes,
		"blocks", result.Stats.Blocks,
		"lots", result.Stats.Lots,
		"duration", result.Stats.TotalTime)
	hooks.OnRunComplete(ctx, runID, hit, time.Since(start), nil)

	r.notify(result)
	return result, nil
}

// fromCache rebuilds a result from a cached document. Any decoding
// failure is treated as a miss.
func (r *Runner) fromCache(ctx context.Context, key string, opts Options) *Result {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return nil
	}
	doc, err := citymap.Unmarshal(data)
	if err != nil {
		r.Logger.Debug("discarding cached run", "error", err)
		return nil
	}

	f, err := BuildField(opts)
	if err != nil {
		return nil
	}
	g, err := doc.Graph()
	if err != nil {
		return nil
	}
	lines, err := doc.StreamlineList()
	if err != nil {
		return nil
	}

	result := &Result{
		Options:     opts,
		Field:       f,
		Streamlines: lines,
		Graph:       g,
		Blocks:      doc.BlockList(),
		Lots:        doc.LotList(),
		Diagnostics: doc.Diagnostics,
	}
	result.count()
	return result
}

func (r *Runner) notify(result *Result) {
	r.mu.Lock()
	subs := slices.Clone(r.subscribers)
	r.mu.Unlock()
	for _, fn := range subs {
		fn(result)
	}
}

// Render generates artifacts for a result and records whether they came
// from the cache.
func (r *Runner) Render(ctx context.Context, result *Result, opts RenderOptions) (map[string][]byte, error) {
	artifacts, hit, err := r.RenderWithCacheInfo(ctx, result.Document(), result.OptionsHash, opts)
	if err != nil {
		return nil, err
	}
	result.CacheInfo.RenderHit = hit
	return artifacts, nil
}

// RenderWithCacheInfo renders a document with caching and returns cache
// hit info. Only image formats are cached; an empty runHash disables
// caching.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, doc citymap.Document, runHash string, opts RenderOptions) (map[string][]byte, bool, error) {
	opts.SetDefaults()
	if err := ValidateFormats(opts.Formats); err != nil {
		return nil, false, err
	}

	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, StageRender)
	start := time.Now()

	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if runHash == "" || !cacheable(format) {
			missing = append(missing, format)
			continue
		}
		key := r.Keyer.ArtifactKey(runHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			artifacts[format] = data
		} else {
			missing = append(missing, format)
		}
	}
	allCached := len(missing) == 0

	if !allCached {
		sub := opts
		sub.Formats = missing
		rendered, err := Render(ctx, doc, sub)
		if err != nil {
			hooks.OnStageComplete(ctx, StageRender, time.Since(start), err)
			return nil, false, err
		}
		for format, data := range rendered {
			artifacts[format] = data
			if runHash != "" && cacheable(format) {
				key := r.Keyer.ArtifactKey(runHash, opts.ArtifactKeyOpts(format))
				_ = r.Cache.Set(ctx, key, data, cache.TTLArtifact)
			}
		}
	}

	hooks.OnStageComplete(ctx, StageRender, time.Since(start), nil)
	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", allCached,
		"duration", time.Since(start))
	return artifacts, allCached, nil
}

// cacheable reports whether a format is worth caching. Text formats
// embed the run id and are cheap to regenerate.
func cacheable(format string) bool {
	switch format {
	case FormatSVG, FormatPNG, FormatPDF, FormatGraphSVG:
		return true
	}
	return false
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
