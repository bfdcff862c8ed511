package catalogservice

import (
	"errors"
	"net/http"
	"strconv"

	"git.platform.alem.school/amibragim/buildflow/internal/shared/httpx"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"github.com/go-chi/chi/v5"
)

const (
	defaultSkip  = 0
	defaultLimit = 100
)

// CatalogHTTPHandler serves the product listing and the health probe.
type CatalogHTTPHandler struct {
	svc    *Service
	logger *logger.Logger
	resp   httpx.Responder
}

func NewHandler(svc *Service, logger *logger.Logger) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{svc: svc, logger: logger, resp: httpx.Responder{Logger: logger}}
}

// Register mounts GET / and GET /produtos.
func (handler *CatalogHTTPHandler) Register(r chi.Router) {
	r.Get("/", handler.health)
	r.Get("/produtos", handler.listProducts)
}

func (handler *CatalogHTTPHandler) health(w http.ResponseWriter, r *http.Request) {
	handler.resp.JSON(r.Context(), w, http.StatusOK, map[string]string{"name": "BuildFlow API", "status": "ok"})
}

// listProducts handles GET /produtos?skip=&limit=.
func (handler *CatalogHTTPHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	skip, err := intParam(r, "skip", defaultSkip)
	if err != nil || skip < 0 {
		handler.resp.Error(ctx, w, http.StatusBadRequest, "skip must be a non-negative integer", err)
		return
	}
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil || limit <= 0 {
		handler.resp.Error(ctx, w, http.StatusBadRequest, "limit must be a positive integer", err)
		return
	}

	views, err := handler.svc.ListProducts(ctx, skip, limit)
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}
	handler.resp.JSON(ctx, w, http.StatusOK, views)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + ": " + err.Error())
	}
	return n, nil
}
