package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/pipeline"
)

// extensions lists output formats longest first so "graph.svg" wins over
// "svg".
var extensions = []string{
	pipeline.FormatGraphSVG,
	pipeline.FormatGeoJSON,
	pipeline.FormatJSON,
	pipeline.FormatSVG,
	pipeline.FormatPNG,
	pipeline.FormatPDF,
	pipeline.FormatDOT,
}

// artifactWriteParams describes rendered artifacts and where they go.
type artifactWriteParams struct {
	artifacts map[string][]byte
	formats   []string
	input     string // source file; names outputs when output is empty
	output    string // file (single format) or base path (multiple)
}

// writeArtifacts writes each artifact to disk and returns the paths in
// format order.
func writeArtifacts(p artifactWriteParams) ([]string, error) {
	var paths []string
	for _, format := range p.formats {
		data, ok := p.artifacts[format]
		if !ok {
			continue
		}
		path := outputPath(p.output, p.input, format, len(p.formats) == 1)
		if samePath(path, p.input) {
			return paths, errors.New(errors.ErrCodeInvalidPath, "refusing to overwrite input %s", p.input)
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return paths, err
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// outputPath picks the file for one format. A single format with an
// explicit output file (one with an extension) is written there verbatim;
// otherwise the format is appended to the base path.
func outputPath(output, input, format string, single bool) string {
	if single && filepath.Ext(output) != "" {
		return output
	}
	return basePath(output, input) + "." + format
}

// basePath derives the base output path from the output and input file paths.
// If output is empty, it strips the extension from input.
// If output has a format extension (.svg, .geojson, ...), it strips that extension.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	for _, format := range extensions {
		if strings.HasSuffix(output, "."+format) {
			return strings.TrimSuffix(output, "."+format)
		}
	}
	return output
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return filepath.Clean(a) == filepath.Clean(b)
}
