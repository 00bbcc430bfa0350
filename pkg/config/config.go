// Package config loads city files.
//
// A city file holds everything needed to reproduce a city: the pipeline
// options (fields, tracing, graph, lot parameters) plus an optional
// [render] section. Files are TOML, YAML or JSON, chosen by extension, and
// can be read from a local path or fetched from any URL go-getter
// understands (https://, s3::, git::...).
//
// # Example
//
//	seed = 7
//	step_length = 10
//	separation = 20
//
//	[[fields]]
//	kind = "grid"
//	angle = 15
//
//	[[fields]]
//	kind = "radial"
//	center = [600, 400]
//	radius = 250
//
//	[render]
//	formats = ["svg", "geojson"]
//	lots = true
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/BurntSushi/toml"
	getter "github.com/hashicorp/go-getter"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/httputil"
	"github.com/matzehuels/citygen/pkg/pipeline"
)

// Supported file formats.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// File is a parsed city file.
type File struct {
	pipeline.Options `yaml:",inline"`

	Render pipeline.RenderOptions `json:"render" toml:"render" yaml:"render"`
}

// FormatOf returns the file format implied by a path's extension.
func FormatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat,
		"unsupported config file %q (must end in .toml, .yaml, .yml or .json)", path)
}

// IsRemote reports whether src must be fetched rather than read from disk.
func IsRemote(src string) bool {
	return strings.Contains(src, "://") || strings.Contains(src, "::")
}

// Loader reads city files. Remote sources are fetched with retry and,
// when Cache is set, reused until the cache TTL expires.
type Loader struct {
	Cache *httputil.Cache
	// Refresh ignores cached remote files.
	Refresh bool
}

// Load reads a city file with a default Loader (no remote cache).
func Load(ctx context.Context, src string) (*File, error) {
	return (&Loader{}).Load(ctx, src)
}

// Load reads a city file from a local path or a remote source.
func (l *Loader) Load(ctx context.Context, src string) (*File, error) {
	format, err := FormatOf(stripQuery(src))
	if err != nil {
		return nil, err
	}

	var data []byte
	if IsRemote(src) {
		data, err = l.remote(ctx, src)
	} else {
		data, err = os.ReadFile(src)
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s not found", src)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, format)
}

func (l *Loader) remote(ctx context.Context, src string) ([]byte, error) {
	var cached *httputil.Cache
	if l.Cache != nil {
		cached = l.Cache.Namespace("config:")
	}
	if cached != nil && !l.Refresh {
		var data []byte
		if ok, _ := cached.Get(src, &data); ok {
			return data, nil
		}
	}

	var data []byte
	err := httputil.RetryWithBackoff(ctx, func() error {
		var err error
		data, err = fetch(ctx, src)
		if err != nil && ctx.Err() == nil {
			return &httputil.RetryableError{Err: err}
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "fetch %s", src)
	}
	if cached != nil {
		_ = cached.Set(src, data)
	}
	return data, nil
}

// fetch downloads src into a temporary directory with go-getter.
func fetch(ctx context.Context, src string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "citygen-config-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, filepath.Base(stripQuery(src)))
	if err := getter.GetFile(dst, src, getter.WithContext(ctx)); err != nil {
		return nil, err
	}
	return os.ReadFile(dst)
}

func stripQuery(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		return src[:i]
	}
	return src
}

// Parse decodes a city file. Unknown keys are rejected so typos do not
// silently fall back to defaults.
func Parse(data []byte, format string) (*File, error) {
	var f File
	switch format {
	case FormatTOML:
		md, err := toml.Decode(string(data), &f)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse toml")
		}
		if keys := md.Undecoded(); len(keys) > 0 {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", keys[0].String())
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse yaml")
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse json")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported config format %q", format)
	}
	return &f, nil
}

// Encode writes options and render settings in the given format.
func Encode(f *File, format string) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatTOML:
		if err := toml.NewEncoder(&buf).Encode(f); err != nil {
			return nil, err
		}
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case FormatJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(f); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported config format %q", format)
	}
	return buf.Bytes(), nil
}

// Merge overlays explicitly set options onto a file's options. explicit
// holds the JSON names of options the user set on the command line
// (flag names with dashes are accepted too); those take base's value,
// everything else keeps file's value.
func Merge(base, file pipeline.Options, explicit map[string]bool) pipeline.Options {
	out := file
	dst := reflect.ValueOf(&out).Elem()
	src := reflect.ValueOf(base)
	typ := dst.Type()

	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := jsonName(sf)
		if explicit[name] || explicit[strings.ReplaceAll(name, "_", "-")] {
			dst.Field(i).Set(src.Field(i))
		}
	}
	// Runtime options always come from the caller.
	out.Workers = base.Workers
	out.Refresh = base.Refresh
	out.Logger = base.Logger
	return out
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
		return name
	}
	return strings.ToLower(sf.Name)
}
