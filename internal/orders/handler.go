package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/domain"
)

// Handler exposes the order lifecycle over HTTP. Every route except the
// payment webhook runs behind the tenant-auth middleware, so the tenant
// id always comes from the verified token, never from the request body.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createOrderItemRequest struct {
	Product  string `json:"product"`
	Variant  string `json:"variant,omitempty"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	Customer     string                   `json:"customer"`
	OrderItems   []createOrderItemRequest `json:"orderItems"`
	Delivery     int64                    `json:"delivery"`
	DeliveryType string                   `json:"deliveryType,omitempty"`
	Address      string                   `json:"address,omitempty"`
	PostalCode   string                   `json:"postalCode,omitempty"`
	Phone        string                   `json:"phone,omitempty"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]CreateItemInput, 0, len(req.OrderItems))
	for _, item := range req.OrderItems {
		items = append(items, CreateItemInput{
			ProductID: item.Product,
			VariantID: item.Variant,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.service.Create(r.Context(), CreateOrderInput{
		TenantID:      identity.TenantID,
		CustomerID:    req.Customer,
		Items:         items,
		DeliveryPrice: req.Delivery,
		DeliveryType:  req.DeliveryType,
		Address:       req.Address,
		PostalCode:    req.PostalCode,
		Phone:         req.Phone,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidQuantity),
			errors.Is(err, ErrUnknownProduct), errors.Is(err, ErrUnknownVariant),
			errors.Is(err, ErrUnknownCustomer):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to create order", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to create order")
		}
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	orders, err := h.service.List(r.Context(), identity.TenantID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	order, err := h.service.Get(r.Context(), identity.TenantID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("failed to get order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status            string `json:"status"`
	OrderTrackingLink string `json:"orderTrackingLink,omitempty"`
	OrderTrackingCode string `json:"orderTrackingCode,omitempty"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), identity.TenantID, r.PathValue("id"),
		domain.OrderStatus(req.Status), req.OrderTrackingLink, req.OrderTrackingCode)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		default:
			h.logger.Error("failed to update order status", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update order status")
		}
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	err := h.service.Delete(r.Context(), identity.TenantID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("failed to delete order", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type recordPaymentRequest struct {
	OrderID    string `json:"orderId"`
	Paid       bool   `json:"paid"`
	TotalPrice int64  `json:"totalPrice"`
}

// HandleRecordPayment is the payment provider's webhook. It is the one
// unauthenticated order route: the provider holds no tenant token, so
// the order is located by id alone.
func (h *Handler) HandleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "orderId is required")
		return
	}

	order, err := h.service.RecordPayment(r.Context(), req.OrderID, req.Paid, req.TotalPrice)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("failed to record payment", "error", err, "order_id", req.OrderID)
		writeError(w, http.StatusInternalServerError, "failed to record payment")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleTotalSales(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	sum, err := h.service.SumTotals(r.Context(), identity.TenantID)
	if err != nil {
		h.logger.Error("failed to sum order totals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to sum order totals")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"total": sum})
}

func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	count, err := h.service.Count(r.Context(), identity.TenantID)
	if err != nil {
		h.logger.Error("failed to count orders", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count orders")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
