package domain

import "time"

type VariantKind string

const (
	VariantKindSize     VariantKind = "size"
	VariantKindColor    VariantKind = "color"
	VariantKindMaterial VariantKind = "material"
	VariantKindStyle    VariantKind = "style"
	VariantKindTitle    VariantKind = "title"
)

// Valid reports whether k is one of the supported variant kinds.
func (k VariantKind) Valid() bool {
	switch k {
	case VariantKindSize, VariantKindColor, VariantKindMaterial, VariantKindStyle, VariantKindTitle:
		return true
	}
	return false
}

// Variant is a named sub-option of a product with its own price delta
// and stock quantity.
type Variant struct {
	ID         string      `json:"id"`
	ProductID  string      `json:"product_id"`
	Kind       VariantKind `json:"kind"`
	Value      string      `json:"value"`
	PriceDelta int64       `json:"price_delta"`
	Quantity   int         `json:"quantity"`
}

type Product struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	// Price in cents.
	Price     int64     `json:"price"`
	Stock     int       `json:"stock"`
	Images    []string  `json:"images"`
	Variants  []Variant `json:"variants"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
