package orderservice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"git.platform.alem.school/amibragim/buildflow/internal/domain/orders"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/contracts"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/httpx"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"github.com/go-chi/chi/v5"
)

// OrderHTTPHandler adapts HTTP requests to the order Service.
type OrderHTTPHandler struct {
	svc    *Service
	logger *logger.Logger
	resp   httpx.Responder
}

// NewOrderHTTPHandler wires an HTTP handler around the Service.
func NewOrderHTTPHandler(svc *Service, logger *logger.Logger) *OrderHTTPHandler {
	return &OrderHTTPHandler{svc: svc, logger: logger, resp: httpx.Responder{Logger: logger}}
}

// Register mounts the /pedidos routes.
func (handler *OrderHTTPHandler) Register(r chi.Router) {
	r.Post("/pedidos", handler.handleCreateOrder)
	r.Get("/pedidos/{id}", handler.handleGetOrder)
}

// --- Request/Response DTOs (HTTP boundary) ---

type createOrderRequest struct {
	Items []contracts.ItemPayload `json:"itens"`
}

type lineResponse struct {
	ProductID int64   `json:"produto_id"`
	Quantity  int     `json:"quantidade"`
	UnitPrice float64 `json:"preco_unitario"`
}

type orderResponse struct {
	ID     int64          `json:"id"`
	Status string         `json:"status"`
	Total  float64        `json:"total"`
	Items  []lineResponse `json:"itens"`
}

func toOrderResponse(order *orders.Order) orderResponse {
	items := make([]lineResponse, len(order.Lines))
	for i, l := range order.Lines {
		items[i] = lineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: orders.ToFloat2(l.UnitPrice),
		}
	}
	return orderResponse{
		ID:     order.ID,
		Status: string(order.Status),
		Total:  orders.ToFloat2(order.Total),
		Items:  items,
	}
}

// --- Handlers ---

func (handler *OrderHTTPHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// check the size of the request body
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MiB
	defer r.Body.Close()

	// check the content type
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		handler.resp.Error(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", errors.New("unsupported content type: "+ct))
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.resp.Error(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return
	}

	handler.logger.Debug(ctx, "order_received", "new order request received", map[string]any{
		"items_count": len(req.Items),
	})

	// bound request time
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	order, err := handler.svc.PlaceOrder(ctxWithTimeout, req.Items)
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}

	handler.resp.JSON(ctx, w, http.StatusCreated, toOrderResponse(order))
}

func (handler *OrderHTTPHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		handler.resp.Error(ctx, w, http.StatusBadRequest, "order id must be a positive integer", err)
		return
	}

	order, err := handler.svc.GetOrder(ctx, id)
	if errors.Is(err, ErrOrderNotFound) {
		handler.resp.Error(ctx, w, http.StatusNotFound, "order not found", err)
		return
	}
	if err != nil {
		handler.resp.Fail(ctx, w, err)
		return
	}

	handler.resp.JSON(ctx, w, http.StatusOK, toOrderResponse(order))
}
