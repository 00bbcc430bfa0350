package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/pipeline"
)

func TestBasePath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		input  string
		want   string
	}{
		{"from input", "", "cities/harbor.json", "cities/harbor"},
		{"plain output", "out/city", "harbor.json", "out/city"},
		{"svg extension", "city.svg", "", "city"},
		{"graph svg extension", "city.graph.svg", "", "city"},
		{"geojson extension", "city.geojson", "", "city"},
		{"unknown extension kept", "city.v2", "", "city.v2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := basePath(tt.output, tt.input); got != tt.want {
				t.Errorf("basePath(%q, %q) = %q, want %q", tt.output, tt.input, got, tt.want)
			}
		})
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		format string
		single bool
		want   string
	}{
		{"single explicit file", "map.svg", "svg", true, "map.svg"},
		{"single no extension", "map", "svg", true, "map.svg"},
		{"multiple strips extension", "map.svg", "geojson", false, "map.geojson"},
		{"multiple base", "out/map", "graph.svg", false, "out/map.graph.svg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outputPath(tt.output, "", tt.format, tt.single); got != tt.want {
				t.Errorf("outputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "nested", "city")

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{
			pipeline.FormatSVG:     []byte("<svg/>"),
			pipeline.FormatGeoJSON: []byte("{}"),
		},
		formats: []string{pipeline.FormatSVG, pipeline.FormatGeoJSON},
		output:  base,
	})
	if err != nil {
		t.Fatalf("writeArtifacts: %v", err)
	}
	want := []string{base + ".svg", base + ".geojson"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], p)
		}
		if _, err := os.Stat(p); err != nil {
			t.Errorf("%s not written: %v", p, err)
		}
	}
}

func TestWriteArtifactsSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{pipeline.FormatSVG: []byte("<svg/>")},
		formats:   []string{pipeline.FormatSVG, pipeline.FormatPNG},
		output:    filepath.Join(dir, "city"),
	})
	if err != nil {
		t.Fatalf("writeArtifacts: %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("paths = %v, want only the svg", paths)
	}
}

func TestWriteArtifactsRefusesInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "city.json")
	if err := os.WriteFile(input, []byte(`{"version":1}`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := writeArtifacts(artifactWriteParams{
		artifacts: map[string][]byte{pipeline.FormatJSON: []byte("{}")},
		formats:   []string{pipeline.FormatJSON},
		input:     input,
	})
	if !errors.Is(err, errors.ErrCodeInvalidPath) {
		t.Fatalf("err = %v, want INVALID_PATH", err)
	}

	data, _ := os.ReadFile(input)
	if string(data) != `{"version":1}` {
		t.Errorf("input overwritten: %q", data)
	}
}
