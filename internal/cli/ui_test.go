package cli

import (
	"strings"
	"testing"

	"github.com/matzehuels/citygen/pkg/pipeline"
)

func TestStatsLine(t *testing.T) {
	tests := []struct {
		name    string
		stats   pipeline.Stats
		cached  bool
		want    []string
		wantNot []string
	}{
		{
			name:    "full run",
			stats:   pipeline.Stats{Nodes: 12, Edges: 15, Blocks: 4, Lots: 9},
			want:    []string{"12", "nodes", "15", "roads", "blocks", "9", "lots", iconFresh},
			wantNot: []string{iconCached},
		},
		{
			name:    "zero counts hidden",
			stats:   pipeline.Stats{Nodes: 3, Edges: 2},
			cached:  true,
			want:    []string{"nodes", "roads", iconCached},
			wantNot: []string{"blocks", "lots", iconFresh},
		},
		{
			name:    "empty",
			want:    []string{iconFresh},
			wantNot: []string{"nodes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := statsLine(tt.stats, tt.cached)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("statsLine() = %q, missing %q", got, w)
				}
			}
			for _, w := range tt.wantNot {
				if strings.Contains(got, w) {
					t.Errorf("statsLine() = %q, unexpected %q", got, w)
				}
			}
		})
	}
}
