package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxCapturedBody bounds the JSON request bodies kept for failure logs.
// Uploads are multipart and never captured.
const maxCapturedBody = 64 << 10

// ErrorMiddleware logs API calls that end in a client or server error with
// enough of the request to reproduce it: the route, the dataset or
// dashboard it addressed and a summary of the JSON body. Successful calls
// are left to the access log.
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

// Handler returns the middleware handler function
func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		var body []byte
		if r.Body != nil && r.ContentLength > 0 && r.ContentLength <= maxCapturedBody &&
			strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				m.handler.HandlePanic(ww, r, rec)
			}
		}()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status < http.StatusBadRequest {
			return
		}

		level := slog.LevelWarn
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("route", routePattern(r)),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		}
		if id := resourceID(r); id != "" {
			attrs = append(attrs, slog.String("resource_id", id))
		}
		if r.URL.RawQuery != "" {
			attrs = append(attrs, slog.String("query", r.URL.RawQuery))
		}
		if len(body) > 0 {
			attrs = append(attrs, slog.Any("request", summarizeBody(body)))
		}

		m.logger.LogAttrs(r.Context(), level, "api call failed", attrs...)
	})
}

// routePattern prefers the matched chi pattern so ids do not explode log
// cardinality
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func resourceID(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	return rctx.URLParam("id")
}

// summarizeBody reduces a dataset or dashboard request to the fields that
// explain a failure. Row data and dashboard state are never logged.
func summarizeBody(body []byte) map[string]interface{} {
	var data map[string]json.RawMessage
	if err := json.Unmarshal(body, &data); err != nil {
		return map[string]interface{}{"invalid_json": true, "bytes": len(body)}
	}

	out := map[string]interface{}{}
	for _, key := range []string{"column", "group_by", "value_column", "function", "x", "y", "search", "sort", "page_index", "page_size", "name"} {
		if raw, ok := data[key]; ok {
			var v interface{}
			if json.Unmarshal(raw, &v) == nil {
				out[key] = v
			}
		}
	}
	if raw, ok := data["filters"]; ok {
		var filters map[string]json.RawMessage
		if json.Unmarshal(raw, &filters) == nil {
			cols := make([]string, 0, len(filters))
			for col := range filters {
				cols = append(cols, col)
			}
			sort.Strings(cols)
			out["filter_columns"] = cols
		}
	}
	if _, ok := data["state"]; ok {
		out["state_bytes"] = len(data["state"])
	}
	return out
}

// RecoveryMiddleware provides panic recovery with proper error responses
func RecoveryMiddleware(handler *ErrorHandler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					handler.HandlePanic(w, r, err)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
