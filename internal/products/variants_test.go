package products

import (
	"testing"

	"storefront/internal/domain"
)

func TestParseVariants(t *testing.T) {
	t.Run("valid payload", func(t *testing.T) {
		variants, err := ParseVariants(`[
			{"kind": "size", "value": "L", "priceDelta": 200, "quantity": 5},
			{"kind": "color", "value": "red", "quantity": 2}
		]`)
		if err != nil {
			t.Fatalf("ParseVariants: %v", err)
		}
		if len(variants) != 2 {
			t.Fatalf("variants = %d, want 2", len(variants))
		}
		if variants[0].Kind != domain.VariantKindSize || variants[0].PriceDelta != 200 {
			t.Errorf("first variant = %+v", variants[0])
		}
		if variants[1].PriceDelta != 0 {
			t.Errorf("priceDelta should default to 0, got %d", variants[1].PriceDelta)
		}
	})

	t.Run("empty field means no variants", func(t *testing.T) {
		variants, err := ParseVariants("")
		if err != nil {
			t.Fatalf("ParseVariants: %v", err)
		}
		if variants != nil {
			t.Errorf("variants = %v, want nil", variants)
		}
	})

	t.Run("malformed payloads are rejected, not emptied", func(t *testing.T) {
		cases := []struct {
			name string
			raw  string
		}{
			{"broken json", `[{"kind": "size"`},
			{"not an array", `{"kind": "size", "value": "L"}`},
			{"unknown kind", `[{"kind": "flavor", "value": "mint"}]`},
			{"missing value", `[{"kind": "size", "value": ""}]`},
			{"negative quantity", `[{"kind": "size", "value": "L", "quantity": -1}]`},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				variants, err := ParseVariants(tc.raw)
				if err == nil {
					t.Fatalf("ParseVariants accepted %q: %v", tc.raw, variants)
				}
				if variants != nil {
					t.Errorf("rejected payload still returned variants: %v", variants)
				}
			})
		}
	})
}
