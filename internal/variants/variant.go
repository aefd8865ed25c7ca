package variants

import (
	"maps"
	"slices"
	"strings"
)

// Variant is one purchasable combination of attribute values.
type Variant struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes"`
	Pricing
	SKU   string `json:"sku"`
	Stock string `json:"stock"`
}

// Key is the order-independent identity of the variant's attribute
// assignment. See CombinationKey.
func (v Variant) Key() string {
	return CombinationKey(v.Attributes)
}

func (v Variant) clone() Variant {
	out := v
	out.Attributes = maps.Clone(v.Attributes)
	out.Pricing = v.Pricing.clone()
	return out
}

// CombinationKey joins an attribute assignment as Name=Value pairs sorted by
// name, e.g. "Metal=Rose Gold|Size=7".
func CombinationKey(attrs map[string]string) string {
	names := slices.Sorted(maps.Keys(attrs))
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+"="+attrs[n])
	}
	return strings.Join(parts, "|")
}

func cloneVariants(list []Variant) []Variant {
	out := make([]Variant, len(list))
	for i, v := range list {
		out[i] = v.clone()
	}
	return out
}
