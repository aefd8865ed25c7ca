package variants

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	ErrEmptyName           = errors.New("variants: empty attribute name or value")
	ErrDuplicateAttribute  = errors.New("variants: duplicate attribute")
	ErrDuplicateValue      = errors.New("variants: duplicate attribute value")
	ErrInconsistentVariant = errors.New("variants: variant does not match the attribute set")
	ErrUnknownPricingType  = errors.New("variants: unknown pricing type")
)

// Validate checks a matrix received from outside the engine: attribute names
// and values are non-empty and unique (case-insensitive), every variant
// assigns exactly one defined value to each defined attribute, and no two
// variants share an assignment.
func Validate(attrs []Attribute, list []Variant) error {
	for i, a := range attrs {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("%w: attribute #%d", ErrEmptyName, i+1)
		}
		if indexOfAttribute(attrs[:i], a.Name) >= 0 {
			return fmt.Errorf("%w: %q", ErrDuplicateAttribute, a.Name)
		}
		for j, v := range a.Values {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("%w: %q value #%d", ErrEmptyName, a.Name, j+1)
			}
			if (Attribute{Values: a.Values[:j]}).indexOfValue(v) >= 0 {
				return fmt.Errorf("%w: %q in %q", ErrDuplicateValue, v, a.Name)
			}
		}
	}

	if len(attrs) == 0 && len(list) > 0 {
		return fmt.Errorf("%w: %d variants without attributes", ErrInconsistentVariant, len(list))
	}
	seen := make(map[string]string, len(list))
	for _, v := range list {
		if !v.PricingType.Valid() {
			return fmt.Errorf("%w: %q on %s", ErrUnknownPricingType, v.PricingType, v.ID)
		}
		if len(v.Attributes) != len(attrs) {
			return fmt.Errorf("%w: %s has %d attributes, want %d", ErrInconsistentVariant, v.ID, len(v.Attributes), len(attrs))
		}
		for _, a := range attrs {
			value, ok := v.Attributes[a.Name]
			if !ok {
				return fmt.Errorf("%w: %s has no %q", ErrInconsistentVariant, v.ID, a.Name)
			}
			if !slices.Contains(a.Values, value) {
				return fmt.Errorf("%w: %s has %q=%q", ErrInconsistentVariant, v.ID, a.Name, value)
			}
		}
		key := v.Key()
		if other, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s repeats %s of %s", ErrInconsistentVariant, v.ID, key, other)
		}
		seen[key] = v.ID
	}
	return nil
}

// Missing lists the combinations of attrs that no variant in list covers, in
// odometer order.
func Missing(attrs []Attribute, list []Variant) []string {
	have := make(map[string]bool, len(list))
	for _, v := range list {
		have[v.Key()] = true
	}
	var out []string
	for _, combo := range Generate(attrs, nil) {
		if key := combo.Key(); !have[key] {
			out = append(out, key)
		}
	}
	return out
}
