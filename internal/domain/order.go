package domain

import "time"

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusProcessed OrderStatus = "processed"
	OrderStatusPaid      OrderStatus = "paid"
)

// Valid reports whether s is one of the known lifecycle states.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusProcessed, OrderStatusPaid:
		return true
	}
	return false
}

type OrderItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
	// Price is the unit price in cents, resolved from the product
	// (plus variant delta) at order-creation time.
	Price int64 `json:"price"`
}

type Order struct {
	ID            string      `json:"id"`
	TenantID      string      `json:"tenant_id"`
	CustomerID    string      `json:"customer_id"`
	Items         []OrderItem `json:"items"`
	Total         int64       `json:"total"`
	Status        OrderStatus `json:"status"`
	Paid          bool        `json:"paid"`
	DeliveryPrice int64       `json:"delivery_price"`
	DeliveryType  string      `json:"delivery_type,omitempty"`
	Address       string      `json:"address,omitempty"`
	PostalCode    string      `json:"postal_code,omitempty"`
	Phone         string      `json:"phone,omitempty"`
	TrackingLink  string      `json:"tracking_link,omitempty"`
	TrackingCode  string      `json:"tracking_code,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
