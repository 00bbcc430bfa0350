package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type countingHooks struct {
	NoopPipelineHooks
	started []string
}

func (c *countingHooks) OnStageStart(_ context.Context, stage string) {
	c.started = append(c.started, stage)
}

func TestRegistryDefaults(t *testing.T) {
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Errorf("Pipeline() = %T, want NoopPipelineHooks", Pipeline())
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Errorf("Cache() = %T, want NoopCacheHooks", Cache())
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Errorf("HTTP() = %T, want NoopHTTPHooks", HTTP())
	}
}

func TestRegistryInstall(t *testing.T) {
	t.Cleanup(Reset)
	ctx := context.Background()

	h := &countingHooks{}
	SetPipelineHooks(h)
	SetPipelineHooks(nil)

	Pipeline().OnStageStart(ctx, "graph")
	Pipeline().OnStageStart(ctx, "blocks")
	if got := strings.Join(h.started, ","); got != "graph,blocks" {
		t.Errorf("started = %q", got)
	}

	Reset()
	Pipeline().OnStageStart(ctx, "lots")
	if len(h.started) != 2 {
		t.Error("hooks still installed after Reset")
	}
}

func TestLogHooks(t *testing.T) {
	t.Cleanup(Reset)
	ctx := context.Background()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	NewLogHooks(logger).Install()

	Pipeline().OnStageComplete(ctx, "streamlines", 5*time.Millisecond, nil)
	Pipeline().OnRunComplete(ctx, "run-1", true, time.Second, nil)
	Cache().OnCacheSet(ctx, "artifact", 2048)
	HTTP().OnResponse(ctx, "POST", "/v1/generate", 200, time.Millisecond)
	HTTP().OnError(ctx, "POST", "/v1/generate", errors.New("boom"))

	out := buf.String()
	for _, want := range []string{
		"stage done", "stage=streamlines",
		"run=run-1", "cached=true",
		"bytes=2048",
		"route=/v1/generate", "status=200",
		"request failed", "boom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestLogHooksQuietAtInfo(t *testing.T) {
	var buf bytes.Buffer
	h := NewLogHooks(log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel}))
	h.OnCacheHit(context.Background(), "run")
	h.OnStageStart(context.Background(), "field")
	if buf.Len() != 0 {
		t.Errorf("debug events logged at info level: %q", buf.String())
	}
}
