package api

import (
	"encoding/json/v2"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/daybookapp/daybook/internal/dto"
	domainerrors "github.com/daybookapp/daybook/internal/errors"
)

// EnvelopeTransformer wraps every huma response body in dto.Envelope.
// Error bodies carry the message, code and details; success bodies carry data.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if !strings.HasPrefix(status, "2") {
		code, _ := strconv.Atoi(status)
		return errorEnvelope(code, v), nil
	}
	return dto.Envelope[any]{Success: true, Data: v}, nil
}

// errorEnvelope renders a failed response. Bodies that are not errors, such as
// an unhealthy health report, are kept as data.
func errorEnvelope(status int, v any) dto.Envelope[any] {
	switch e := v.(type) {
	case *APIError:
		return dto.Envelope[any]{Error: e.Message, Code: e.Code, Details: e.Details}
	case *huma.ErrorModel:
		return dto.Envelope[any]{Error: e.Detail, Code: statusToCode(e.Status), Details: e.Errors}
	case error:
		code := statusToCode(status)
		var domainErr *domainerrors.Error
		if domainerrors.As(e, &domainErr) {
			code = string(domainErr.Code)
		}
		return dto.Envelope[any]{Error: e.Error(), Code: code}
	default:
		return dto.Envelope[any]{Data: v, Error: http.StatusText(status), Code: statusToCode(status)}
	}
}

// writeError writes an envelope for requests that never reach huma.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.MarshalWrite(w, dto.Envelope[any]{Error: message, Code: statusToCode(status)})
}

// requestLogger logs one line per request at debug level, warn for 5xx.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelDebug
			if status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
