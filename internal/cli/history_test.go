package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/citygen/pkg/pipeline"
	"github.com/matzehuels/citygen/pkg/store"
)

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
		{30 * 24 * time.Hour, "May 16, 2025"},
	}
	for _, tt := range tests {
		if got := formatRelativeTime(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("formatRelativeTime(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
}

func TestRunTable(t *testing.T) {
	now := time.Now()
	runs := []store.RunRecord{
		{ID: "run-a", CreatedAt: now, Options: pipeline.Options{Seed: 7}, Nodes: 120, Blocks: 30, Lots: 95, Cached: true},
		{ID: "run-b", CreatedAt: now.Add(-2 * time.Hour), Options: pipeline.Options{Seed: 8}, Nodes: 80},
	}

	out := runTable(runs, now)
	for _, want := range []string{"run-a", "run-b", "120", "95", "2h ago", iconCached} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
