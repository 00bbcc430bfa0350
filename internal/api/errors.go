package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/citygen/pkg/errors"
	"github.com/matzehuels/citygen/pkg/observability"
)

// statusOf maps an error code to an HTTP status.
func statusOf(code errors.Code) int {
	switch code.Kind() {
	case errors.KindInvalid:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindCancelled:
		return http.StatusGatewayTimeout
	case errors.KindUnavailable:
		return http.StatusBadGateway
	case errors.KindUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// writeError writes err as an ErrorResponse. When the request deadline
// has passed the timeout middleware owns the response, so nothing is
// written.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	route := r.URL.Path
	if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
		route = rctx.RoutePattern()
	}
	observability.HTTP().OnError(ctx, r.Method, route, err)

	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return
	}

	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusOf(code)
	msg := errors.UserMessage(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "route", route, "error", err)
		msg = "internal error"
	}

	writeJSON(w, status, ErrorResponse{Error: ErrorBody{
		Code:      string(code),
		Message:   msg,
		Fields:    errors.Fields(err),
		RequestID: middleware.GetReqID(ctx),
	}})
}
