package customers

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain"
)

// CustomerRepository persists customer accounts. Every query is filtered
// by tenant id; a row owned by another tenant behaves exactly like a
// missing row.
type CustomerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const customerColumns = `id, tenant_id, first_name, last_name, email, phone, address, postal_code,
	password_hash, verified, created_at, updated_at`

func scanCustomer(row interface{ Scan(...any) error }, c *domain.Customer) error {
	return row.Scan(&c.ID, &c.TenantID, &c.FirstName, &c.LastName, &c.Email, &c.Phone,
		&c.Address, &c.PostalCode, &c.PasswordHash, &c.Verified, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	customer.ID = uuid.New().String()
	now := time.Now().UTC()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers (id, tenant_id, first_name, last_name, email, phone, address, postal_code,
			password_hash, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`, customer.ID, customer.TenantID, customer.FirstName, customer.LastName, customer.Email,
		customer.Phone, customer.Address, customer.PostalCode, customer.PasswordHash,
		customer.Verified, now)
	return err
}

func (r *CustomerRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Customer, error) {
	customer := &domain.Customer{}

	err := scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID), customer)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return customer, nil
}

func (r *CustomerRepository) GetByEmail(ctx context.Context, tenantID, email string) (*domain.Customer, error) {
	customer := &domain.Customer{}

	err := scanCustomer(r.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE email = $1 AND tenant_id = $2
	`, email, tenantID), customer)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return customer, nil
}

func (r *CustomerRepository) List(ctx context.Context, tenantID string) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	customers := []domain.Customer{}
	for rows.Next() {
		var customer domain.Customer
		if err := scanCustomer(rows, &customer); err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}

	return customers, rows.Err()
}

// Update rewrites the mutable profile fields. The password hash and
// verified flag have their own paths. Returns false when the customer
// does not exist for this tenant.
func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET first_name = $3, last_name = $4, email = $5, phone = $6, address = $7, postal_code = $8,
			updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`, customer.ID, customer.TenantID, customer.FirstName, customer.LastName, customer.Email,
		customer.Phone, customer.Address, customer.PostalCode)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

func (r *CustomerRepository) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM customers
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

// MarkVerified flips the verified flag exactly once. The conditional
// UPDATE is what makes the verification token single-use: the first call
// wins, every later call reports false.
func (r *CustomerRepository) MarkVerified(ctx context.Context, tenantID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE customers
		SET verified = TRUE, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND verified = FALSE
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
