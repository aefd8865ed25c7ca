package usecase

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/phenrril/joyeria/internal/domain"
	"github.com/phenrril/joyeria/internal/variants"
)

// PricedProduct is the storefront view of a product, priced with the
// material prices current at request time.
type PricedProduct struct {
	Slug        string               `json:"slug"`
	Name        string               `json:"name"`
	Category    string               `json:"category"`
	Description string               `json:"description"`
	Price       *decimal.Decimal     `json:"price"`
	Attributes  []variants.Attribute `json:"attributes,omitempty"`
	Variants    []PricedVariant      `json:"variants,omitempty"`
}

type PricedVariant struct {
	Key        string            `json:"key"`
	Attributes map[string]string `json:"attributes"`
	SKU        string            `json:"sku,omitempty"`
	InStock    bool              `json:"inStock"`
	Price      *decimal.Decimal  `json:"price"`
}

// Storefront lists active products with prices resolved on every call.
func (uc *ProductUC) Storefront(ctx context.Context, f domain.ProductFilter) ([]PricedProduct, int64, error) {
	f.ActiveOnly = true
	list, total, err := uc.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	book, err := materialBook(ctx, uc.Materials)
	if err != nil {
		return nil, 0, err
	}
	out := make([]PricedProduct, 0, len(list))
	for i := range list {
		out = append(out, Price(&list[i], book))
	}
	return out, total, nil
}

func (uc *ProductUC) StorefrontProduct(ctx context.Context, slug string) (*PricedProduct, error) {
	p, err := uc.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, domain.ErrNotFound
	}
	book, err := materialBook(ctx, uc.Materials)
	if err != nil {
		return nil, err
	}
	priced := Price(p, book)
	return &priced, nil
}

// Price resolves the display prices of p, rounded to two decimals. A product
// with variants is priced from its cheapest resolvable variant.
func Price(p *domain.Product, book variants.PriceBook) PricedProduct {
	out := PricedProduct{
		Slug:        p.Slug,
		Name:        p.Name,
		Category:    p.Category,
		Description: p.Description,
		Attributes:  p.Attributes,
	}
	if !p.HasVariants() {
		if price, ok := p.Pricing.Resolve(book); ok {
			r := price.Round(2)
			out.Price = &r
		}
		return out
	}
	for _, v := range p.Variants {
		pv := PricedVariant{Key: v.Key(), Attributes: v.Attributes, SKU: v.SKU, InStock: inStock(v.Stock)}
		if price, ok := v.Resolve(book); ok {
			r := price.Round(2)
			pv.Price = &r
			if out.Price == nil || r.LessThan(*out.Price) {
				low := r
				out.Price = &low
			}
		}
		out.Variants = append(out.Variants, pv)
	}
	return out
}

func inStock(stock string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(stock))
	return err == nil && n > 0
}
