package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/rl1809/oms/internal/core/domain"
	"github.com/rl1809/oms/internal/core/service"
)

// HTTPHandler is the thin transport in front of the order use cases.
// Callers are assumed to be already authorized; authentication lives
// outside this service.
type HTTPHandler struct {
	orderService *service.OrderService
}

type PlaceOrderRequest struct {
	Items map[string]int `json:"items"` // sku -> quantity
}

type PlaceOrderResponse struct {
	OrderID string `json:"order_id,omitempty"`
	Message string `json:"message"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type OrderItemResponse struct {
	Sku       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderResponse struct {
	OrderID   string              `json:"order_id"`
	Status    string              `json:"status"`
	CreatedAt string              `json:"created_at"`
	Items     []OrderItemResponse `json:"items"`
}

func NewHTTPHandler(orderService *service.OrderService) *HTTPHandler {
	return &HTTPHandler{orderService: orderService}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.PlaceOrder)
	mux.HandleFunc("GET /orders/{id}", h.GetOrder)
	mux.HandleFunc("POST /orders/{id}/cancel", h.CancelOrder)
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, PlaceOrderResponse{Message: "invalid request body"})
		return
	}

	cmd, err := service.NewPlaceOrderCommand(req.Items)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, PlaceOrderResponse{Message: err.Error()})
		return
	}

	orderID, err := h.orderService.PlaceOrder(r.Context(), cmd)
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"
		if errors.Is(err, domain.ErrSkuNotFound) {
			status = http.StatusUnprocessableEntity
			message = err.Error()
		}
		writeJSON(w, status, PlaceOrderResponse{Message: message})
		return
	}

	writeJSON(w, http.StatusAccepted, PlaceOrderResponse{
		OrderID: orderID.String(),
		Message: "order accepted, reservation in progress",
	})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "order not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
		return
	}

	resp := OrderResponse{
		OrderID:   order.ID().String(),
		Status:    string(order.Status()),
		CreatedAt: order.CreatedAt().UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, item := range order.Items() {
		resp.Items = append(resp.Items, OrderItemResponse{
			Sku:       item.Sku(),
			Quantity:  item.Quantity(),
			UnitPrice: item.UnitPrice().String(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Reason) == "" {
		req.Reason = "customer request"
	}

	err := h.orderService.CancelOrder(r.Context(), orderID, req.Reason)
	if err != nil {
		status := http.StatusInternalServerError
		message := "internal error"
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			status = http.StatusNotFound
			message = "order not found"
		case errors.Is(err, domain.ErrInvalidOrderState):
			status = http.StatusConflict
			message = err.Error()
		}
		writeJSON(w, status, map[string]string{"message": message})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "order cancelled"})
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid order id"})
		return uuid.Nil, false
	}
	return orderID, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
