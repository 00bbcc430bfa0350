package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/citygen/pkg/observability"
	"github.com/matzehuels/citygen/pkg/pipeline"
)

func quietSpinner(ctx context.Context, msg string) (*Spinner, *bytes.Buffer) {
	var buf bytes.Buffer
	s := newSpinnerWithContext(ctx, msg)
	s.w = &buf
	return s, &buf
}

func TestSpinnerDraws(t *testing.T) {
	s, buf := quietSpinner(context.Background(), "Working...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.SetMessage("Still working...")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	for _, want := range []string{"Working...", "Still working..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
	if !strings.HasSuffix(out, "\r") {
		t.Error("line not cleared on Stop")
	}
}

func TestSpinnerCancelled(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()
			s, _ := quietSpinner(ctx, "Waiting...")
			s.Start()
			time.Sleep(100 * time.Millisecond)
			if !s.Cancelled() {
				t.Error("spinner should report cancellation")
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s, _ := quietSpinner(context.Background(), "Stopping...")
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestFollowStages(t *testing.T) {
	t.Cleanup(observability.Reset)
	ctx := context.Background()

	s, _ := quietSpinner(ctx, "Generating...")
	restore := followStages(s)

	observability.Pipeline().OnStageStart(ctx, pipeline.StageGraph)
	if got := s.Message(); got != stageLabels[pipeline.StageGraph] {
		t.Errorf("message = %q after graph stage", got)
	}
	observability.Pipeline().OnStageStart(ctx, "unknown")
	if got := s.Message(); got != stageLabels[pipeline.StageGraph] {
		t.Errorf("unknown stage changed message to %q", got)
	}

	restore()
	observability.Pipeline().OnStageStart(ctx, pipeline.StageLots)
	if got := s.Message(); got != stageLabels[pipeline.StageGraph] {
		t.Errorf("hooks still attached after restore: %q", got)
	}
}

type stageRecorder struct {
	observability.NoopPipelineHooks
	stages []string
}

func (r *stageRecorder) OnStageStart(_ context.Context, stage string) {
	r.stages = append(r.stages, stage)
}

func TestFollowStagesForwards(t *testing.T) {
	t.Cleanup(observability.Reset)
	ctx := context.Background()

	rec := &stageRecorder{}
	observability.SetPipelineHooks(rec)

	s, _ := quietSpinner(ctx, "Generating...")
	restore := followStages(s)
	observability.Pipeline().OnStageStart(ctx, pipeline.StageField)
	restore()

	if len(rec.stages) != 1 || rec.stages[0] != pipeline.StageField {
		t.Errorf("forwarded stages = %v", rec.stages)
	}
	if observability.Pipeline() != observability.PipelineHooks(rec) {
		t.Error("restore did not reinstall previous hooks")
	}
}
