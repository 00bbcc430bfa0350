// Package observability lets callers watch generation, caching and API
// traffic without the libraries depending on a metrics backend.
//
// Three event families are defined as interfaces, each with a no-op
// default held in a process-wide registry. Libraries fetch the current
// hooks at the point of use; binaries install implementations once at
// startup. [LogHooks] is a ready-made implementation that writes every
// event to a charmbracelet logger at debug level.
//
//	observability.SetPipelineHooks(observability.NewLogHooks(logger))
//
//	hooks := observability.Pipeline()
//	hooks.OnStageStart(ctx, "streamlines")
//	// ... trace ...
//	hooks.OnStageComplete(ctx, "streamlines", time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks observes generation runs. Stages are "field",
// "streamlines", "graph", "blocks", "lots" and "render".
type PipelineHooks interface {
	OnStageStart(ctx context.Context, stage string)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnRunComplete fires once per run, after the last stage or the first
	// failure. cached reports whether the result came from the cache.
	OnRunComplete(ctx context.Context, runID string, cached bool, duration time.Duration, err error)
}

// CacheHooks observes cache traffic. keyType is "run", "artifact" or
// "other".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks observes the API server. route is the matched route pattern,
// not the raw path.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, route string)
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
	OnError(ctx context.Context, method, route string, err error)
}

// NoopPipelineHooks ignores pipeline events.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, string)                              {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error)     {}
func (NoopPipelineHooks) OnRunComplete(context.Context, string, bool, time.Duration, error) {}

// NoopCacheHooks ignores cache events.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores HTTP events.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// registry holds the installed hooks. Setters ignore nil.
var registry = struct {
	sync.RWMutex
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}{
	pipeline: NoopPipelineHooks{},
	cache:    NoopCacheHooks{},
	http:     NoopHTTPHooks{},
}

// SetPipelineHooks installs pipeline hooks.
func SetPipelineHooks(h PipelineHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.pipeline = h
	registry.Unlock()
}

// SetCacheHooks installs cache hooks.
func SetCacheHooks(h CacheHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.cache = h
	registry.Unlock()
}

// SetHTTPHooks installs HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	if h == nil {
		return
	}
	registry.Lock()
	registry.http = h
	registry.Unlock()
}

// Pipeline returns the installed pipeline hooks.
func Pipeline() PipelineHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.pipeline
}

// Cache returns the installed cache hooks.
func Cache() CacheHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.cache
}

// HTTP returns the installed HTTP hooks.
func HTTP() HTTPHooks {
	registry.RLock()
	defer registry.RUnlock()
	return registry.http
}

// Reset reinstalls the no-op hooks.
func Reset() {
	registry.Lock()
	defer registry.Unlock()
	registry.pipeline = NoopPipelineHooks{}
	registry.cache = NoopCacheHooks{}
	registry.http = NoopHTTPHooks{}
}
