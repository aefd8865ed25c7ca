package variants

import (
	"strings"

	"github.com/shopspring/decimal"
)

type PricingType string

const (
	PricingFlat    PricingType = "flat"
	PricingDynamic PricingType = "dynamic"
)

func (t PricingType) Valid() bool {
	return t == "" || t == PricingFlat || t == PricingDynamic
}

// PriceBook resolves a material id to its current price per gram.
type PriceBook interface {
	PricePerGram(materialID string) (decimal.Decimal, bool)
}

// MaterialPrices is a PriceBook backed by a map of material id to price per gram.
type MaterialPrices map[string]decimal.Decimal

func (m MaterialPrices) PricePerGram(materialID string) (decimal.Decimal, bool) {
	p, ok := m[materialID]
	return p, ok
}

// PriceRule is either a FlatRule or a DynamicRule.
type PriceRule interface {
	isPriceRule()
}

type FlatRule struct {
	Price string
}

type DynamicRule struct {
	Weight       string
	MaterialID   string
	MakingCharge string
}

func (FlatRule) isPriceRule()    {}
func (DynamicRule) isPriceRule() {}

// Pricing is the pricing block shared by a product and each of its variants.
// Both modes keep their fields when the type is toggled; only the active
// mode is surfaced through Rule.
type Pricing struct {
	PricingType     PricingType      `json:"pricingType"`
	Price           string           `json:"price,omitempty"`
	Weight          string           `json:"weight,omitempty"`
	MaterialID      string           `json:"materialId,omitempty"`
	MakingCharge    string           `json:"makingCharge,omitempty"`
	CalculatedPrice *decimal.Decimal `json:"calculatedPrice,omitempty"`
}

func (p Pricing) Rule() PriceRule {
	if p.PricingType == PricingDynamic {
		return DynamicRule{Weight: p.Weight, MaterialID: p.MaterialID, MakingCharge: p.MakingCharge}
	}
	return FlatRule{Price: p.Price}
}

// Recalculate refreshes CalculatedPrice from the dynamic fields. A flat block
// never carries a calculated price.
func (p *Pricing) Recalculate(book PriceBook) {
	p.CalculatedPrice = nil
	rule, ok := p.Rule().(DynamicRule)
	if !ok {
		return
	}
	if total, ok := CalculateFields(rule.Weight, rule.MaterialID, rule.MakingCharge, book); ok {
		p.CalculatedPrice = &total
	}
}

// Resolve returns the selling price of the active rule.
func (p Pricing) Resolve(book PriceBook) (decimal.Decimal, bool) {
	switch r := p.Rule().(type) {
	case FlatRule:
		price, err := decimal.NewFromString(strings.TrimSpace(r.Price))
		if err != nil || price.IsNegative() {
			return decimal.Zero, false
		}
		return price, true
	case DynamicRule:
		return CalculateFields(r.Weight, r.MaterialID, r.MakingCharge, book)
	}
	return decimal.Zero, false
}

func (p Pricing) clone() Pricing {
	out := p
	if p.CalculatedPrice != nil {
		c := *p.CalculatedPrice
		out.CalculatedPrice = &c
	}
	return out
}

// Calculate returns weight * pricePerGram + makingCharge. The second result is
// false when weight is not positive or the making charge is negative. No
// rounding is applied.
func Calculate(weight, pricePerGram, makingCharge decimal.Decimal) (decimal.Decimal, bool) {
	if !weight.IsPositive() || makingCharge.IsNegative() {
		return decimal.Zero, false
	}
	return weight.Mul(pricePerGram).Add(makingCharge), true
}

// CalculateFields parses form values and resolves the material through book
// before calling Calculate. Blank or unparseable inputs and unknown materials
// report false.
func CalculateFields(weight, materialID, makingCharge string, book PriceBook) (decimal.Decimal, bool) {
	w, err := decimal.NewFromString(strings.TrimSpace(weight))
	if err != nil {
		return decimal.Zero, false
	}
	mc, err := decimal.NewFromString(strings.TrimSpace(makingCharge))
	if err != nil {
		return decimal.Zero, false
	}
	materialID = strings.TrimSpace(materialID)
	if book == nil || materialID == "" {
		return decimal.Zero, false
	}
	ppg, ok := book.PricePerGram(materialID)
	if !ok {
		return decimal.Zero, false
	}
	return Calculate(w, ppg, mc)
}
