package products

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"storefront/internal/domain"
)

// ProductRepository persists products and their variant sub-lists. Every
// query is filtered by tenant id; a row owned by another tenant behaves
// exactly like a missing row.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	product.ID = uuid.New().String()
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, tenant_id, name, description, category, price, stock, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, product.ID, product.TenantID, product.Name, product.Description, product.Category,
		product.Price, product.Stock, pq.Array(product.Images), now)
	if err != nil {
		return err
	}

	for i := range product.Variants {
		v := &product.Variants[i]
		v.ID = uuid.New().String()
		v.ProductID = product.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO product_variants (id, product_id, tenant_id, kind, value, price_delta, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, v.ID, product.ID, product.TenantID, v.Kind, v.Value, v.PriceDelta, v.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *ProductRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Product, error) {
	product := &domain.Product{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, description, category, price, stock, images, created_at, updated_at
		FROM products
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&product.ID, &product.TenantID, &product.Name, &product.Description,
		&product.Category, &product.Price, &product.Stock, pq.Array(&product.Images),
		&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, kind, value, price_delta, quantity
		FROM product_variants
		WHERE product_id = $1 AND tenant_id = $2
		ORDER BY kind, value
	`, id, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Kind, &v.Value, &v.PriceDelta, &v.Quantity); err != nil {
			return nil, err
		}
		product.Variants = append(product.Variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return product, nil
}

func (r *ProductRepository) List(ctx context.Context, tenantID string) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, description, category, price, stock, images, created_at, updated_at
		FROM products
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	productMap := make(map[string]*domain.Product)
	var productIDs []string

	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(&product.ID, &product.TenantID, &product.Name, &product.Description,
			&product.Category, &product.Price, &product.Stock, pq.Array(&product.Images),
			&product.CreatedAt, &product.UpdatedAt); err != nil {
			return nil, err
		}
		product.Variants = []domain.Variant{}
		productMap[product.ID] = &product
		productIDs = append(productIDs, product.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(productIDs) == 0 {
		return []domain.Product{}, nil
	}

	variantRows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, kind, value, price_delta, quantity
		FROM product_variants
		WHERE product_id = ANY($1) AND tenant_id = $2
		ORDER BY kind, value
	`, pq.Array(productIDs), tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = variantRows.Close() }()

	for variantRows.Next() {
		var v domain.Variant
		if err := variantRows.Scan(&v.ID, &v.ProductID, &v.Kind, &v.Value, &v.PriceDelta, &v.Quantity); err != nil {
			return nil, err
		}
		product := productMap[v.ProductID]
		product.Variants = append(product.Variants, v)
	}

	if err := variantRows.Err(); err != nil {
		return nil, err
	}

	productList := make([]domain.Product, 0, len(productIDs))
	for _, id := range productIDs {
		productList = append(productList, *productMap[id])
	}

	return productList, nil
}

// Update rewrites the product row and replaces its variant list. Images
// are not touched here; they only grow through AppendImages.
func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = $3, description = $4, category = $5, price = $6, stock = $7, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`, product.ID, product.TenantID, product.Name, product.Description, product.Category,
		product.Price, product.Stock)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rowsAffected == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM product_variants
		WHERE product_id = $1 AND tenant_id = $2
	`, product.ID, product.TenantID)
	if err != nil {
		return false, err
	}

	for i := range product.Variants {
		v := &product.Variants[i]
		v.ID = uuid.New().String()
		v.ProductID = product.ID
		_, err = tx.ExecContext(ctx, `
			INSERT INTO product_variants (id, product_id, tenant_id, kind, value, price_delta, quantity)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, v.ID, product.ID, product.TenantID, v.Kind, v.Value, v.PriceDelta, v.Quantity)
		if err != nil {
			return false, err
		}
	}

	return true, tx.Commit()
}

// AppendImages adds newly uploaded image URLs to the product, keeping
// the ones already attached.
func (r *ProductRepository) AppendImages(ctx context.Context, tenantID, id string, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET images = images || $3, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, pq.Array(urls))
	return err
}

func (r *ProductRepository) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM products
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}
