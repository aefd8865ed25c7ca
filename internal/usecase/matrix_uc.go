package usecase

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/phenrril/joyeria/internal/domain"
	"github.com/phenrril/joyeria/internal/variants"
)

// MatrixUC runs the variant editor over a matrix held by the client. Each
// call rebuilds the matrix from the request, applies one edit and returns
// the result; nothing is stored until the product is saved.
type MatrixUC struct {
	Materials domain.MaterialRepo
	Catalog   variants.Catalog
}

type MatrixState struct {
	Attributes []variants.Attribute `json:"attributes"`
	Variants   []variants.Variant   `json:"variants"`
}

const (
	OpAddAttribute    = "add_attribute"
	OpRemoveAttribute = "remove_attribute"
	OpAddValue        = "add_value"
	OpRemoveValue     = "remove_value"
	OpUpdateVariant   = "update_variant"
	OpRecalculate     = "recalculate"
)

type MatrixOp struct {
	Op        string            `json:"op" validate:"required,oneof=add_attribute remove_attribute add_value remove_value update_variant recalculate"`
	Attribute string            `json:"attribute"`
	Value     string            `json:"value"`
	Values    []string          `json:"values"`
	Match     map[string]string `json:"match"`
	Patch     *VariantPatch     `json:"patch"`
}

// VariantPatch lists the fields to overwrite on one variant. Nil fields are
// left as they are.
type VariantPatch struct {
	PricingType  *variants.PricingType `json:"pricingType"`
	Price        *string               `json:"price"`
	Weight       *string               `json:"weight"`
	MaterialID   *string               `json:"materialId"`
	MakingCharge *string               `json:"makingCharge"`
	SKU          *string               `json:"sku"`
	Stock        *string               `json:"stock"`
}

func (p VariantPatch) apply(v *variants.Variant) {
	if p.PricingType != nil {
		v.PricingType = *p.PricingType
	}
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&v.Price, p.Price)
	set(&v.Weight, p.Weight)
	set(&v.MaterialID, p.MaterialID)
	set(&v.MakingCharge, p.MakingCharge)
	set(&v.SKU, p.SKU)
	set(&v.Stock, p.Stock)
}

func (uc *MatrixUC) catalog() variants.Catalog {
	if uc.Catalog == nil {
		return variants.DefaultCatalog
	}
	return uc.Catalog
}

func (uc *MatrixUC) Predefined() variants.Catalog {
	return uc.catalog()
}

// Apply performs op on state. The boolean reports whether the edit was
// accepted; rejected edits (duplicates, blanks, unknown names) return the
// state unchanged and no error.
func (uc *MatrixUC) Apply(ctx context.Context, state MatrixState, op MatrixOp) (MatrixState, bool, error) {
	verr := &ValidationError{}
	check(verr, "", op)
	if err := variants.Validate(state.Attributes, state.Variants); err != nil {
		verr.add("state", err.Error())
	}
	if op.Op == OpUpdateVariant {
		if op.Patch == nil {
			verr.add("patch", "is required")
		} else if op.Patch.PricingType != nil && (*op.Patch.PricingType == "" || !op.Patch.PricingType.Valid()) {
			verr.add("patch.pricingType", "must be one of: flat dynamic")
		}
	}
	if err := verr.orNil(); err != nil {
		return state, false, err
	}

	book, err := materialBook(ctx, uc.Materials)
	if err != nil {
		return state, false, err
	}
	m := variants.NewMatrix(state.Attributes, state.Variants)
	m.SetCatalog(uc.catalog())
	m.SetPriceBook(book)

	var accepted bool
	switch op.Op {
	case OpAddAttribute:
		accepted = m.AddAttribute(op.Attribute, op.Values...)
	case OpRemoveAttribute:
		accepted = m.RemoveAttribute(op.Attribute)
	case OpAddValue:
		accepted = m.AddValue(op.Attribute, op.Value)
	case OpRemoveValue:
		accepted = m.RemoveValue(op.Attribute, op.Value)
	case OpUpdateVariant:
		accepted = m.UpdateVariant(op.Match, op.Patch.apply)
	case OpRecalculate:
		accepted = true
	}
	return MatrixState{Attributes: m.Attributes, Variants: m.Variants}, accepted, nil
}

// Generate rebuilds the variant list for state.Attributes, carrying over the
// data of state.Variants where the combination still exists.
func (uc *MatrixUC) Generate(ctx context.Context, state MatrixState) (MatrixState, error) {
	if err := variants.Validate(state.Attributes, nil); err != nil {
		return state, &ValidationError{Fields: map[string]string{"attributes": err.Error()}}
	}
	book, err := materialBook(ctx, uc.Materials)
	if err != nil {
		return state, err
	}
	list := variants.Generate(state.Attributes, state.Variants)
	for i := range list {
		list[i].Recalculate(book)
	}
	return MatrixState{Attributes: state.Attributes, Variants: list}, nil
}

// Calculate returns the dynamic price for the inputs, or nil while they are
// incomplete.
func (uc *MatrixUC) Calculate(ctx context.Context, weight, materialID, makingCharge string) (*decimal.Decimal, error) {
	book, err := materialBook(ctx, uc.Materials)
	if err != nil {
		return nil, err
	}
	total, ok := variants.CalculateFields(weight, materialID, makingCharge, book)
	if !ok {
		return nil, nil
	}
	return &total, nil
}
