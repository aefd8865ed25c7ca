package variants

import (
	"slices"
	"strings"
)

// Attribute is one axis of variation of a product, e.g. Metal or Ring Size.
type Attribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

func (a Attribute) clone() Attribute {
	return Attribute{Name: a.Name, Values: slices.Clone(a.Values)}
}

func (a Attribute) indexOfValue(value string) int {
	for i, v := range a.Values {
		if strings.EqualFold(v, value) {
			return i
		}
	}
	return -1
}

func indexOfAttribute(attrs []Attribute, name string) int {
	for i, a := range attrs {
		if strings.EqualFold(a.Name, name) {
			return i
		}
	}
	return -1
}

func cloneAttributes(attrs []Attribute) []Attribute {
	out := make([]Attribute, len(attrs))
	for i, a := range attrs {
		out[i] = a.clone()
	}
	return out
}

// Catalog is an ordered list of predefined attributes whose values seed a new
// attribute added under the same name.
type Catalog []Attribute

// Lookup finds a predefined attribute by case-insensitive name.
func (c Catalog) Lookup(name string) (Attribute, bool) {
	i := indexOfAttribute(c, strings.TrimSpace(name))
	if i < 0 {
		return Attribute{}, false
	}
	return c[i].clone(), true
}

// Names lists the catalog entries in display order.
func (c Catalog) Names() []string {
	out := make([]string, 0, len(c))
	for _, a := range c {
		out = append(out, a.Name)
	}
	return out
}

var DefaultCatalog = Catalog{
	{Name: "Metal", Values: []string{"Yellow Gold", "White Gold", "Rose Gold", "Silver", "Platinum"}},
	{Name: "Purity", Values: []string{"14K", "18K", "22K", "24K", "925"}},
	{Name: "Ring Size", Values: []string{"5", "6", "7", "8", "9", "10"}},
	{Name: "Stone", Values: []string{"Diamond", "Ruby", "Emerald", "Sapphire", "Pearl"}},
	{Name: "Color", Values: []string{"Gold", "Silver", "Rose"}},
	{Name: "Length", Values: []string{"16 in", "18 in", "20 in"}},
}
