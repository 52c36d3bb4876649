package products

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"storefront/internal/auth"
	"storefront/internal/storage"
)

// maxFormMemory bounds the in-memory portion of multipart parsing; files
// beyond it spill to disk.
const maxFormMemory = 8 << 20

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// parseWriteForm reads the multipart form shared by create and update:
// scalar fields plus a JSON "variants" field plus up to MaxImages files
// under "images".
func parseWriteForm(r *http.Request, tenantID string) (WriteInput, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return WriteInput{}, fmt.Errorf("%w: expected multipart form data", ErrInvalidProduct)
	}

	input := WriteInput{
		TenantID:    tenantID,
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}

	if rawPrice := r.FormValue("price"); rawPrice != "" {
		price, err := strconv.ParseInt(rawPrice, 10, 64)
		if err != nil {
			return WriteInput{}, fmt.Errorf("%w: price must be an integer amount in cents", ErrInvalidProduct)
		}
		input.Price = price
	}

	if rawStock := r.FormValue("stock"); rawStock != "" {
		stock, err := strconv.Atoi(rawStock)
		if err != nil {
			return WriteInput{}, fmt.Errorf("%w: stock must be an integer", ErrInvalidProduct)
		}
		input.Stock = stock
	}

	variants, err := ParseVariants(r.FormValue("variants"))
	if err != nil {
		return WriteInput{}, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	input.Variants = variants

	if r.MultipartForm != nil {
		files := r.MultipartForm.File["images"]
		if len(files) > MaxImages {
			return WriteInput{}, fmt.Errorf("%w: at most %d images per request", ErrInvalidProduct, MaxImages)
		}
		for _, header := range files {
			data, err := readImageFile(header)
			if err != nil {
				return WriteInput{}, err
			}
			input.Images = append(input.Images, ImageFile{Filename: header.Filename, Data: data})
		}
	}

	return input, nil
}

func readImageFile(header *multipart.FileHeader) ([]byte, error) {
	if header.Size > storage.MaxImageSize {
		return nil, storage.ErrImageTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	// +1 so a file that lies about its size still trips the limit.
	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > storage.MaxImageSize {
		return nil, storage.ErrImageTooLarge
	}

	return data, nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	input, err := parseWriteForm(r, identity.TenantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err, "failed to create product")
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	input, err := parseWriteForm(r, identity.TenantID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.Update(r.Context(), r.PathValue("id"), input)
	if err != nil {
		h.writeServiceError(w, err, "failed to update product")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidProduct),
		errors.Is(err, storage.ErrImageTooLarge),
		errors.Is(err, storage.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product not found")
	default:
		h.logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	products, err := h.service.List(r.Context(), identity.TenantID)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	product, err := h.service.Get(r.Context(), identity.TenantID, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	if err := h.service.Delete(r.Context(), identity.TenantID, r.PathValue("id")); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to delete product", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete product")
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
