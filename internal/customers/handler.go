package customers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/auth"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type registerRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Password   string `json:"password"`
}

// HandleRegister serves both POST /customers and
// POST /customers/registration.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := h.service.Register(r.Context(), RegisterInput{
		TenantID:   identity.TenantID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		PostalCode: req.PostalCode,
		Password:   req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("failed to register customer", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to register customer")
		}
		return
	}

	writeJSON(w, http.StatusCreated, customer)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, customer, err := h.service.Login(r.Context(), identity.TenantID, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error("failed to log customer in", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":    token,
		"customer": customer,
	})
}

// HandleVerify consumes the emailed verification link. It is
// unauthenticated: the token in the query string is the credential.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	if err := h.service.Verify(r.Context(), token); err != nil {
		if errors.Is(err, ErrInvalidVerification) {
			writeError(w, http.StatusForbidden, "Invalid or expired token")
			return
		}
		h.logger.Error("failed to verify customer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to verify customer")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "verified"})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	customers, err := h.service.List(r.Context(), identity.TenantID)
	if err != nil {
		h.logger.Error("failed to list customers", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list customers")
		return
	}

	writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	customer, err := h.service.Get(r.Context(), identity.TenantID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.logger.Error("failed to get customer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get customer")
		return
	}

	writeJSON(w, http.StatusOK, customer)
}

type updateRequest struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	customer, err := h.service.Update(r.Context(), identity.TenantID, r.PathValue("id"), UpdateInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.logger.Error("failed to update customer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update customer")
		return
	}

	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	if err := h.service.Delete(r.Context(), identity.TenantID, r.PathValue("id")); err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			writeError(w, http.StatusNotFound, "customer not found")
			return
		}
		h.logger.Error("failed to delete customer", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete customer")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
