package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rasyaandrean/order-service/internal/orders"
)

// OrdersHandler exposes the order lifecycle over REST. Authentication and
// authorization are assumed to have happened at the boundary in front of
// this service; the authenticated principal arrives in X-User-Id.
type OrdersHandler struct {
	Service *orders.Service
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/analytics", h.analytics)
		r.Get("/enhanced-analytics", h.enhancedAnalytics)
		r.Get("/amount-range", h.listByAmountRange)
		r.Get("/revenue", h.revenueSince)
		r.Get("/customer/{customerID}", h.listByCustomer)
		r.Get("/customer/{customerID}/count", h.countByCustomer)
		r.Get("/status/{status}", h.listByStatus)
		r.Get("/{orderNumber}", h.getOrder)
		r.Put("/{orderNumber}/status", h.updateStatus)
		r.Delete("/{orderNumber}", h.cancelOrder)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, orders.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func sourceIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.Service.CreateOrder(ctx, &req, sourceIP(r), r.Header.Get("X-User-Id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp, err := h.Service.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) listByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp, err := h.Service.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) listByAmountRange(w http.ResponseWriter, r *http.Request) {
	min, err := decimal.NewFromString(r.URL.Query().Get("min"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "min must be a decimal amount"})
		return
	}
	max, err := decimal.NewFromString(r.URL.Query().Get("max"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "max must be a decimal amount"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp, err := h.Service.ListOrdersByAmountRange(ctx, min, max)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) countByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	status, err := orders.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	n, err := h.Service.CountCustomerOrders(ctx, customerID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"customerId": customerID,
		"status":     status,
		"count":      n,
	})
}

func (h *OrdersHandler) revenueSince(w http.ResponseWriter, r *http.Request) {
	since, err := time.Parse(time.RFC3339, r.URL.Query().Get("since"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "since must be RFC3339"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	revenue, err := h.Service.RevenueSince(ctx, since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"since":        since.UTC(),
		"totalRevenue": revenue,
	})
}

func (h *OrdersHandler) listByStatus(w http.ResponseWriter, r *http.Request) {
	status, err := orders.ParseStatus(chi.URLParam(r, "status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp, err := h.Service.ListOrdersByStatus(ctx, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	var req orders.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	status, err := orders.ParseStatus(string(req.Status))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.Service.UpdateStatus(ctx, orderNumber, status, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "Cancelled by admin"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp, err := h.Service.CancelOrder(ctx, orderNumber, reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) analytics(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	resp, err := h.Service.Analytics(ctx, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) enhancedAnalytics(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseWindow(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	resp, err := h.Service.EnhancedAnalytics(ctx, start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("startDate"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("startDate must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("endDate"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("endDate must be RFC3339")
	}
	return start, end, nil
}
