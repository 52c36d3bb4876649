package products

import (
	"encoding/json"
	"fmt"

	"storefront/internal/domain"
)

// variantPayload is the boundary shape for one variant record. Variants
// arrive as a JSON array in the "variants" multipart field.
type variantPayload struct {
	Kind       domain.VariantKind `json:"kind"`
	Value      string             `json:"value"`
	PriceDelta int64              `json:"priceDelta"`
	Quantity   int                `json:"quantity"`
}

// ParseVariants validates the raw variants field. Malformed payloads are
// rejected rather than degraded to an empty list, so a typo never
// silently drops a product's variants.
func ParseVariants(raw string) ([]domain.Variant, error) {
	if raw == "" {
		return nil, nil
	}

	var payloads []variantPayload
	if err := json.Unmarshal([]byte(raw), &payloads); err != nil {
		return nil, fmt.Errorf("variants must be a JSON array: %w", err)
	}

	variants := make([]domain.Variant, 0, len(payloads))
	for i, p := range payloads {
		if !p.Kind.Valid() {
			return nil, fmt.Errorf("variant %d: unknown kind %q", i, p.Kind)
		}
		if p.Value == "" {
			return nil, fmt.Errorf("variant %d: value is required", i)
		}
		if p.Quantity < 0 {
			return nil, fmt.Errorf("variant %d: quantity must not be negative", i)
		}
		variants = append(variants, domain.Variant{
			Kind:       p.Kind,
			Value:      p.Value,
			PriceDelta: p.PriceDelta,
			Quantity:   p.Quantity,
		})
	}

	return variants, nil
}
