package variants

import (
	"maps"
	"slices"
	"strings"
)

// Matrix is the attribute set and variant list of one product being edited.
// Every accepted attribute edit regenerates the whole variant list, so the
// variant keys always equal the attribute names.
type Matrix struct {
	Attributes []Attribute `json:"attributes"`
	Variants   []Variant   `json:"variants"`

	catalog Catalog
	book    PriceBook
}

// NewMatrix copies attrs and list into a new Matrix using DefaultCatalog.
// It panics if the pair fails Validate; callers holding untrusted input must
// validate first.
func NewMatrix(attrs []Attribute, list []Variant) *Matrix {
	if err := Validate(attrs, list); err != nil {
		panic(err)
	}
	m := &Matrix{
		Attributes: cloneAttributes(attrs),
		Variants:   cloneVariants(list),
		catalog:    DefaultCatalog,
	}
	if m.Variants == nil {
		m.Variants = []Variant{}
	}
	return m
}

func (m *Matrix) SetCatalog(c Catalog) {
	m.catalog = c
}

// SetPriceBook attaches the material prices used for calculated prices and
// recomputes every variant.
func (m *Matrix) SetPriceBook(book PriceBook) {
	m.book = book
	m.Recalculate()
}

// AddAttribute appends a new attribute. Explicit values seed it; otherwise a
// catalog entry with the same name does. Empty or duplicate names
// (case-insensitive) are ignored and reported as false.
func (m *Matrix) AddAttribute(name string, values ...string) bool {
	name = strings.TrimSpace(name)
	if name == "" || indexOfAttribute(m.Attributes, name) >= 0 {
		return false
	}
	attr := Attribute{Name: name, Values: []string{}}
	if len(values) == 0 {
		if preset, ok := m.catalog.Lookup(name); ok {
			values = preset.Values
		}
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && attr.indexOfValue(v) < 0 {
			attr.Values = append(attr.Values, v)
		}
	}
	m.Attributes = append(m.Attributes, attr)
	m.regenerate()
	return true
}

func (m *Matrix) RemoveAttribute(name string) bool {
	i := indexOfAttribute(m.Attributes, strings.TrimSpace(name))
	if i < 0 {
		return false
	}
	m.Attributes = slices.Delete(m.Attributes, i, i+1)
	m.regenerate()
	return true
}

// AddValue appends value to the named attribute. Empty values and values
// already present in that attribute (case-insensitive) are ignored.
func (m *Matrix) AddValue(attribute, value string) bool {
	i := indexOfAttribute(m.Attributes, strings.TrimSpace(attribute))
	value = strings.TrimSpace(value)
	if i < 0 || value == "" || m.Attributes[i].indexOfValue(value) >= 0 {
		return false
	}
	m.Attributes[i].Values = append(m.Attributes[i].Values, value)
	m.regenerate()
	return true
}

func (m *Matrix) RemoveValue(attribute, value string) bool {
	i := indexOfAttribute(m.Attributes, strings.TrimSpace(attribute))
	if i < 0 {
		return false
	}
	j := m.Attributes[i].indexOfValue(strings.TrimSpace(value))
	if j < 0 {
		return false
	}
	m.Attributes[i].Values = slices.Delete(m.Attributes[i].Values, j, j+1)
	m.regenerate()
	return true
}

// UpdateVariant applies fn to the variant whose attribute assignment equals
// attrs. The assignment itself cannot be changed by fn. Siblings are never
// touched.
func (m *Matrix) UpdateVariant(attrs map[string]string, fn func(*Variant)) bool {
	for i := range m.Variants {
		v := &m.Variants[i]
		if !maps.Equal(v.Attributes, attrs) {
			continue
		}
		assignment := maps.Clone(v.Attributes)
		fn(v)
		v.Attributes = assignment
		if m.book != nil {
			v.Recalculate(m.book)
		}
		return true
	}
	return false
}

// Recalculate refreshes the calculated price of every variant. It is a no-op
// until a PriceBook is attached.
func (m *Matrix) Recalculate() {
	if m.book == nil {
		return
	}
	for i := range m.Variants {
		m.Variants[i].Recalculate(m.book)
	}
}

func (m *Matrix) regenerate() {
	m.Variants = Generate(m.Attributes, m.Variants)
	m.Recalculate()
}
