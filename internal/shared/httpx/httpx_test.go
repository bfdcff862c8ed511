package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *logger.Logger { return logger.New("test", io.Discard, slog.LevelError) }

func TestStatusForKind(t *testing.T) {
	cases := map[orders.Kind]int{
		orders.KindInvalidPayload:  http.StatusBadRequest,
		orders.KindInvalidQuantity: http.StatusBadRequest,
		orders.KindProductNotFound: http.StatusNotFound,
		orders.KindPublishFailure:  http.StatusServiceUnavailable,
		orders.KindStoreFailure:    http.StatusInternalServerError,
		orders.KindUnknown:         http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, StatusForKind(kind), kind.String())
	}
}

func TestResponderFail(t *testing.T) {
	resp := Responder{Logger: quiet()}

	rec := httptest.NewRecorder()
	resp.Fail(context.Background(), rec, orders.ProductNotFound(9))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"product 9 not found"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	resp.Fail(context.Background(), rec, orders.StoreFailure("insert order", errors.New("disk full")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestRequestIDMiddleware(t *testing.T) {
	log := quiet()
	r := NewRouter(log)
	var seen string
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		seen = logger.RequestIDFrom(req.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get(HeaderRequestID))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, rec.Header().Get(HeaderRequestID))
	assert.Equal(t, rec.Header().Get(HeaderRequestID), seen)
}
