package products

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storefront/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidProduct  = errors.New("invalid product")
)

// MaxImages caps how many files a single create or update may attach.
const MaxImages = 5

// Store is the slice of ProductRepository the catalog logic needs.
type Store interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Product, error)
	List(ctx context.Context, tenantID string) ([]domain.Product, error)
	Update(ctx context.Context, product *domain.Product) (bool, error)
	AppendImages(ctx context.Context, tenantID, id string, urls []string) error
	Delete(ctx context.Context, tenantID, id string) (bool, error)
}

// Uploader sends image bytes to the blob host and returns hosted URLs.
type Uploader interface {
	UploadImage(ctx context.Context, filename string, data []byte) (string, error)
}

// ImageFile is one uploaded file from the multipart form.
type ImageFile struct {
	Filename string
	Data     []byte
}

type WriteInput struct {
	TenantID    string
	Name        string
	Description string
	Category    string
	Price       int64
	Stock       int
	Variants    []domain.Variant
	Images      []ImageFile
}

// Service owns catalog writes: field validation, variant sub-lists, and
// image upload to the external blob host.
type Service struct {
	store    Store
	uploader Uploader
	logger   *slog.Logger
}

func NewService(store Store, uploader Uploader, logger *slog.Logger) *Service {
	return &Service{store: store, uploader: uploader, logger: logger}
}

func validateWrite(input WriteInput) error {
	if input.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if input.Price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidProduct)
	}
	if input.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidProduct)
	}
	if input.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	if len(input.Images) > MaxImages {
		return fmt.Errorf("%w: at most %d images per request", ErrInvalidProduct, MaxImages)
	}
	return nil
}

// uploadImages pushes each file to the blob host. Validation errors on
// any file abort the whole write; the catalog never references an image
// that failed to upload.
func (s *Service) uploadImages(ctx context.Context, images []ImageFile) ([]string, error) {
	urls := make([]string, 0, len(images))
	for _, image := range images {
		url, err := s.uploader.UploadImage(ctx, image.Filename, image.Data)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", image.Filename, err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func (s *Service) Create(ctx context.Context, input WriteInput) (*domain.Product, error) {
	if err := validateWrite(input); err != nil {
		return nil, err
	}

	urls, err := s.uploadImages(ctx, input.Images)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		TenantID:    input.TenantID,
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Stock:       input.Stock,
		Images:      urls,
		Variants:    input.Variants,
	}

	if err := s.store.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("persist product: %w", err)
	}

	s.logger.Info("product created", "product_id", product.ID, "tenant_id", product.TenantID,
		"variants", len(product.Variants), "images", len(urls))
	return product, nil
}

// Update rewrites the product's fields and variant list; freshly uploaded
// image URLs append to the ones already attached.
func (s *Service) Update(ctx context.Context, id string, input WriteInput) (*domain.Product, error) {
	if err := validateWrite(input); err != nil {
		return nil, err
	}

	product := &domain.Product{
		ID:          id,
		TenantID:    input.TenantID,
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Stock:       input.Stock,
		Variants:    input.Variants,
	}

	updated, err := s.store.Update(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("persist product: %w", err)
	}
	if !updated {
		return nil, ErrProductNotFound
	}

	urls, err := s.uploadImages(ctx, input.Images)
	if err != nil {
		return nil, err
	}
	if err := s.store.AppendImages(ctx, input.TenantID, id, urls); err != nil {
		return nil, fmt.Errorf("append images: %w", err)
	}

	s.logger.Info("product updated", "product_id", id, "tenant_id", input.TenantID,
		"images_added", len(urls))
	return s.store.GetByID(ctx, input.TenantID, id)
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*domain.Product, error) {
	product, err := s.store.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]domain.Product, error) {
	return s.store.List(ctx, tenantID)
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	deleted, err := s.store.Delete(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrProductNotFound
	}
	s.logger.Info("product deleted", "product_id", id, "tenant_id", tenantID)
	return nil
}
