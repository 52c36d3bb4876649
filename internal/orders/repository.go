package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"storefront/internal/domain"
)

// OrderRepository persists orders and their items. Every operation
// except GetAnyByID is filtered by tenant id; an order owned by another
// tenant behaves exactly like a missing order.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order and all of its items in a single transaction,
// so a crash can never leave items without an order or an order missing
// items.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = uuid.New().String()
	now := time.Now().UTC()
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, tenant_id, customer_id, status, paid, total, delivery_price, delivery_type,
			address, postal_code, phone, tracking_link, tracking_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`, order.ID, order.TenantID, order.CustomerID, order.Status, order.Paid, order.Total,
		order.DeliveryPrice, order.DeliveryType, order.Address, order.PostalCode, order.Phone,
		order.TrackingLink, order.TrackingCode, now)
	if err != nil {
		return err
	}

	for i := range order.Items {
		item := &order.Items[i]
		item.ID = uuid.New().String()
		var variantID any
		if item.VariantID != "" {
			variantID = item.VariantID
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, variant_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, order.ID, item.ProductID, variantID, item.Quantity, item.Price)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const orderColumns = `id, tenant_id, customer_id, status, paid, total, delivery_price, delivery_type,
	address, postal_code, phone, tracking_link, tracking_code, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }, order *domain.Order) error {
	return row.Scan(&order.ID, &order.TenantID, &order.CustomerID, &order.Status, &order.Paid,
		&order.Total, &order.DeliveryPrice, &order.DeliveryType, &order.Address, &order.PostalCode,
		&order.Phone, &order.TrackingLink, &order.TrackingCode, &order.CreatedAt, &order.UpdatedAt)
}

func (r *OrderRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// GetAnyByID looks an order up without a tenant filter. It exists for
// the payment webhook only, which carries no tenant credential; every
// authenticated path goes through GetByID.
func (r *OrderRepository) GetAnyByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id), order)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, order *domain.Order) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, variant_id, quantity, price
		FROM order_items
		WHERE order_id = $1
	`, order.ID)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		var variantID sql.NullString
		if err := rows.Scan(&item.ID, &item.ProductID, &variantID, &item.Quantity, &item.Price); err != nil {
			return err
		}
		item.VariantID = variantID.String
		order.Items = append(order.Items, item)
	}

	return rows.Err()
}

// List returns the tenant's orders newest first, items populated with a
// single batched query.
func (r *OrderRepository) List(ctx context.Context, tenantID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, product_id, variant_id, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		var variantID sql.NullString
		if err := itemRows.Scan(&orderID, &item.ID, &item.ProductID, &variantID, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		item.VariantID = variantID.String
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orderList := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orderList = append(orderList, *orderMap[id])
	}

	return orderList, nil
}

// UpdateStatus updates the lifecycle state and tracking fields. Returns
// nil when the order does not exist for this tenant.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tenantID, id string, status domain.OrderStatus, trackingLink, trackingCode string) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $3, tracking_link = $4, tracking_code = $5, updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, status, trackingLink, trackingCode)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, tenantID, id)
}

func (r *OrderRepository) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM orders
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

func (r *OrderRepository) Count(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM orders WHERE tenant_id = $1
	`, tenantID).Scan(&count)
	return count, err
}

// SumTotals delegates the aggregation to the database; no orders means
// zero, not NULL.
func (r *OrderRepository) SumTotals(ctx context.Context, tenantID string) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0) FROM orders WHERE tenant_id = $1
	`, tenantID).Scan(&sum)
	return sum, err
}

// MarkPaid flips the paid flag and decrements stock in one transaction.
// The paid flag acts as the idempotency guard: the conditional UPDATE
// wins exactly once, so a replayed webhook never decrements twice. The
// decrements themselves are single conditional statements clamped at
// zero, not read-modify-write, so concurrent webhooks for overlapping
// products serialize on the row.
func (r *OrderRepository) MarkPaid(ctx context.Context, order *domain.Order, total int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET paid = TRUE, status = $2, total = $3, updated_at = NOW()
		WHERE id = $1 AND paid = FALSE
	`, order.ID, domain.OrderStatusPaid, total)
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

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET stock = GREATEST(stock - $2, 0), updated_at = NOW()
			WHERE id = $1
		`, item.ProductID, item.Quantity)
		if err != nil {
			return false, err
		}

		if item.VariantID != "" {
			_, err = tx.ExecContext(ctx, `
				UPDATE product_variants
				SET quantity = GREATEST(quantity - $2, 0)
				WHERE id = $1
			`, item.VariantID, item.Quantity)
			if err != nil {
				return false, err
			}
		}
	}

	return true, tx.Commit()
}
