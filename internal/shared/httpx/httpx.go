// Package httpx holds the HTTP plumbing shared by the API handlers:
// router, request ids, JSON responses and error-kind mapping.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const HeaderRequestID = "X-Request-ID"

// NewRouter returns a chi router with request ids and panic recovery installed.
func NewRouter(log *logger.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID(log))
	r.Use(middleware.Recoverer)
	return r
}

// RequestID takes X-Request-ID from the request (or generates one), echoes it
// in the response and stores it where the logger finds it.
func RequestID(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(HeaderRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(HeaderRequestID, reqID)

			ctx := log.WithRequestID(r.Context(), reqID)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StatusForKind maps an error kind to its HTTP status.
func StatusForKind(kind orders.Kind) int {
	switch kind {
	case orders.KindInvalidPayload, orders.KindInvalidQuantity:
		return http.StatusBadRequest
	case orders.KindProductNotFound:
		return http.StatusNotFound
	case orders.KindPublishFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Responder writes JSON bodies and logs failures.
type Responder struct {
	Logger *logger.Logger
}

// Fail writes err with the status of its kind. Store and unknown errors are
// not exposed to the client.
func (resp Responder) Fail(ctx context.Context, w http.ResponseWriter, err error) {
	status := StatusForKind(orders.KindOf(err))

	msg := "internal error"
	var e *orders.Error
	if errors.As(err, &e) && status < http.StatusInternalServerError {
		msg = e.Error()
	} else if status == http.StatusServiceUnavailable {
		msg = "order could not be enqueued, try again"
	}
	resp.Error(ctx, w, status, msg, err)
}

// Error sends a JSON error response with a message.
func (resp Responder) Error(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	// map status -> action
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusNotFound {
		action = "not_found"
	}
	if status >= 500 {
		resp.Logger.Error(ctx, action, msg, err)
	} else {
		resp.Logger.Debug(ctx, action, msg, map[string]any{"status": status, "error": errString(err)})
	}

	type errBody struct {
		Error string `json:"error"`
	}
	resp.JSON(ctx, w, status, errBody{Error: msg})
}

// JSON takes any type of data and encodes it to the HTTP response.
func (resp Responder) JSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			resp.Logger.Error(ctx, "response_encode_failed", "failed to encode response", err)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
