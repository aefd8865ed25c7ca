package variants

import (
	"fmt"
	"maps"
)

// Generate enumerates the Cartesian product of attrs in odometer order (the
// last attribute varies fastest) and merges it with previous.
//
// A combination whose assignment equals a previous record's attributes keeps
// that record, id included. Any other combination gets a fresh flat record
// with id "variant-<position>" and stock "0". The result is empty when there
// are no attributes or any attribute has no values. Neither input is modified.
//
// Fresh ids are positional, so an id can move to a different combination
// after earlier combinations disappear. Use Variant.Key for a stable identity.
func Generate(attrs []Attribute, previous []Variant) []Variant {
	if len(attrs) == 0 {
		return []Variant{}
	}
	for _, a := range attrs {
		if len(a.Values) == 0 {
			return []Variant{}
		}
	}

	combos := combinations(attrs)
	out := make([]Variant, 0, len(combos))
	for i, combo := range combos {
		if old, ok := findByAttributes(previous, combo); ok {
			v := old.clone()
			v.Attributes = combo
			out = append(out, v)
			continue
		}
		out = append(out, Variant{
			ID:         fmt.Sprintf("variant-%d", i+1),
			Attributes: combo,
			Pricing:    Pricing{PricingType: PricingFlat},
			Stock:      "0",
		})
	}
	return out
}

func combinations(attrs []Attribute) []map[string]string {
	out := []map[string]string{{}}
	for _, a := range attrs {
		next := make([]map[string]string, 0, len(out)*len(a.Values))
		for _, partial := range out {
			for _, value := range a.Values {
				m := maps.Clone(partial)
				m[a.Name] = value
				next = append(next, m)
			}
		}
		out = next
	}
	return out
}

func findByAttributes(list []Variant, attrs map[string]string) (Variant, bool) {
	for _, v := range list {
		if len(v.Attributes) == len(attrs) && maps.Equal(v.Attributes, attrs) {
			return v, true
		}
	}
	return Variant{}, false
}
