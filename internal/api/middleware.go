package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/citygen/pkg/cache"
	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/observability"
)

// instrument logs each request and reports it to the HTTP hooks. The
// route pattern is only known after routing, so hooks fire with the raw
// path on entry and the pattern on exit.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		start := time.Now()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		dur := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, route, status, dur)

		s.logger.Debug("request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", dur)
	})
}

// clientKeyer returns a keyer scoped to the requesting client.
func clientKeyer(r *http.Request) (cache.Keyer, error) {
	id := r.Header.Get(clientHeader)
	if id == "" {
		id = anonymousClient
	}
	if err := errors.ValidateName(id); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid %s header", clientHeader)
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), "client:"+id+":"), nil
}
