package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/citygen/pkg/citymap"
	"github.com/matzehuels/citygen/pkg/config"
	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/pipeline"
	"github.com/matzehuels/citygen/pkg/store"
)

// GenerateRequest is the body of POST /v1/generate. Options are inlined;
// when no fields are given the named preset (or the default one) supplies
// them.
type GenerateRequest struct {
	Preset string `json:"preset,omitempty"`
	pipeline.Options
	Render pipeline.RenderOptions `json:"render"`
}

// GenerateResponse is returned for JSON generation requests.
type GenerateResponse struct {
	RunID    string           `json:"run_id"`
	Cached   bool             `json:"cached"`
	Summary  citymap.Summary  `json:"summary"`
	Stats    pipeline.Stats   `json:"stats"`
	Document citymap.Document `json:"document"`
}

// RunList is returned by GET /v1/runs.
type RunList struct {
	Runs []store.RunRecord `json:"runs"`
}

var contentTypes = map[string]string{
	pipeline.FormatJSON:     "application/json",
	pipeline.FormatGeoJSON:  "application/geo+json",
	pipeline.FormatSVG:      "image/svg+xml",
	pipeline.FormatPNG:      "image/png",
	pipeline.FormatPDF:      "application/pdf",
	pipeline.FormatDOT:      "text/vnd.graphviz",
	pipeline.FormatGraphSVG: "image/svg+xml",
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"presets": config.Presets(),
		"default": config.DefaultPreset,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	format, err := responseFormat(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := s.decodeGenerate(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := req.options()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.generate(w, r, opts, req.Render, format)
}

func (s *Server) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	format, err := responseFormat(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.getRun(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.generate(w, r, rec.Options, pipeline.RenderOptions{}, format)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "run history is disabled"))
		return
	}
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "limit must be a positive integer, got %q", v))
			return
		}
		limit = n
	}
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	writeJSON(w, http.StatusOK, RunList{Runs: runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.getRun(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "run history is disabled"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := errors.ValidateRunID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Generation
// =============================================================================

func (s *Server) generate(w http.ResponseWriter, r *http.Request, opts pipeline.Options, ropts pipeline.RenderOptions, format string) {
	ctx := r.Context()
	keyer, err := clientKeyer(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Refresh = r.URL.Query().Get("refresh") == "true"

	runner := pipeline.NewRunner(s.cache, keyer, s.logger)
	result, err := runner.Execute(ctx, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if s.store != nil {
		rec := store.NewRecord(result)
		if err := s.store.Save(ctx, &rec); err != nil {
			s.logger.Warn("record run failed", "run", result.RunID, "error", err)
		}
	}

	w.Header().Set("X-Run-ID", result.RunID)
	w.Header().Set("X-Cache", cacheStatus(result.CacheInfo.RunHit))

	if format == pipeline.FormatJSON {
		doc := result.Document()
		writeJSON(w, http.StatusOK, GenerateResponse{
			RunID:    result.RunID,
			Cached:   result.CacheInfo.RunHit,
			Summary:  doc.Summary(),
			Stats:    result.Stats,
			Document: doc,
		})
		return
	}

	ropts.Formats = []string{format}
	artifacts, err := runner.Render(ctx, result, ropts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

func (s *Server) decodeGenerate(w http.ResponseWriter, r *http.Request) (*GenerateRequest, error) {
	var req GenerateRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &req, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode request")
	}
	return &req, nil
}

// options resolves the preset and returns the options to run.
func (req *GenerateRequest) options() (pipeline.Options, error) {
	opts := req.Options
	if len(opts.Fields) > 0 {
		if req.Preset != "" {
			return opts, errors.New(errors.ErrCodeInvalidConfig, "preset and fields are mutually exclusive")
		}
		return opts, nil
	}
	name := req.Preset
	if name == "" {
		name = config.DefaultPreset
	}
	preset, err := config.Preset(name)
	if err != nil {
		return opts, err
	}
	opts.Fields = preset.Fields
	return opts, nil
}

func (s *Server) getRun(r *http.Request) (*store.RunRecord, error) {
	if s.store == nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "run history is disabled")
	}
	id := chi.URLParam(r, "id")
	if err := errors.ValidateRunID(id); err != nil {
		return nil, err
	}
	return s.store.Get(r.Context(), id)
}

// responseFormat reads the ?format= query parameter (default json).
func responseFormat(r *http.Request) (string, error) {
	format := r.URL.Query().Get("format")
	if format == "" {
		return pipeline.FormatJSON, nil
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		return "", err
	}
	return format, nil
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

// =============================================================================
// Responses
// =============================================================================

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes a failure.
type ErrorBody struct {
	Code      string              `json:"code"`
	Message   string              `json:"message"`
	Fields    []errors.FieldError `json:"fields,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}
