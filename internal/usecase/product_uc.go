package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/joyeria/internal/domain"
	"github.com/phenrril/joyeria/internal/variants"
)

type ProductUC struct {
	Products  domain.ProductRepo
	Materials domain.MaterialRepo
}

// ProductInput is the admin product form.
type ProductInput struct {
	Name        string               `json:"name" validate:"required,max=180"`
	Slug        string               `json:"slug" validate:"max=140"`
	Category    string               `json:"category" validate:"max=100"`
	Description string               `json:"description"`
	Active      *bool                `json:"active"`
	Pricing     variants.Pricing     `json:"pricing"`
	Attributes  []variants.Attribute `json:"attributes"`
	Variants    []variants.Variant   `json:"variants"`
}

type flatFields struct {
	Price string `json:"price" validate:"required,money"`
}

type dynamicFields struct {
	Weight       string `json:"weight" validate:"required,grams"`
	MaterialID   string `json:"materialId" validate:"required,uuid"`
	MakingCharge string `json:"makingCharge" validate:"required,money"`
}

type stockFields struct {
	SKU   string `json:"sku" validate:"max=100"`
	Stock string `json:"stock" validate:"required,number"`
}

func (uc *ProductUC) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	return uc.Products.List(ctx, f)
}

func (uc *ProductUC) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if slug == "" {
		return nil, errors.New("empty slug")
	}
	return uc.Products.FindBySlug(ctx, slug)
}

func (uc *ProductUC) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	book, err := materialBook(ctx, uc.Materials)
	if err != nil {
		return nil, err
	}
	if err := validateProduct(in, book); err != nil {
		return nil, err
	}
	p := &domain.Product{ID: uuid.New(), Active: true}
	applyInput(p, in, book)

	base := in.Slug
	if base == "" {
		base = in.Name
	}
	slug, err := uc.uniqueSlug(ctx, GenerateSlug(base), p.ID, in.Slug != "")
	if err != nil {
		return nil, err
	}
	p.Slug = slug
	if err := uc.Products.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}
	return p, nil
}

// Update replaces the editable fields of the product. The slug only changes
// when the input names a new one.
func (uc *ProductUC) Update(ctx context.Context, slug string, in ProductInput) (*domain.Product, error) {
	p, err := uc.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	book, err := materialBook(ctx, uc.Materials)
	if err != nil {
		return nil, err
	}
	if err := validateProduct(in, book); err != nil {
		return nil, err
	}
	applyInput(p, in, book)
	if in.Slug != "" && GenerateSlug(in.Slug) != p.Slug {
		next, err := uc.uniqueSlug(ctx, GenerateSlug(in.Slug), p.ID, true)
		if err != nil {
			return nil, err
		}
		p.Slug = next
	}
	if err := uc.Products.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save product: %w", err)
	}
	return p, nil
}

func (uc *ProductUC) DeleteBySlug(ctx context.Context, slug string) error {
	if slug == "" {
		return errors.New("empty slug")
	}
	return uc.Products.DeleteBySlug(ctx, slug)
}

func (uc *ProductUC) Categories(ctx context.Context) ([]string, error) {
	return uc.Products.DistinctCategories(ctx)
}

// All walks every product page, active or not, in name order.
func (uc *ProductUC) All(ctx context.Context) ([]domain.Product, error) {
	const pageSize = 200
	var out []domain.Product
	for page := 1; ; page++ {
		list, total, err := uc.Products.List(ctx, domain.ProductFilter{Page: page, PageSize: pageSize})
		if err != nil {
			return nil, err
		}
		out = append(out, list...)
		if len(list) == 0 || page*pageSize >= int(total) {
			return out, nil
		}
	}
}

// RepriceAll refreshes the calculated prices and list price of every stored
// product against the current material prices. It returns how many products
// changed.
func (uc *ProductUC) RepriceAll(ctx context.Context) (int, error) {
	list, err := uc.All(ctx)
	if err != nil {
		return 0, err
	}
	book, err := materialBook(ctx, uc.Materials)
	if err != nil {
		return 0, err
	}
	changed := 0
	for i := range list {
		p := &list[i]
		if !reprice(p, book) {
			continue
		}
		if err := uc.Products.Save(ctx, p); err != nil {
			return changed, fmt.Errorf("save %s: %w", p.Slug, err)
		}
		changed++
	}
	return changed, nil
}

func reprice(p *domain.Product, book variants.PriceBook) bool {
	before := snapshotPrices(p)
	p.Pricing.Recalculate(book)
	for i := range p.Variants {
		p.Variants[i].Recalculate(book)
	}
	p.ListPrice = listPrice(p, book)
	return snapshotPrices(p) != before
}

func snapshotPrices(p *domain.Product) string {
	var b strings.Builder
	b.WriteString(p.ListPrice.String())
	write := func(d *decimal.Decimal) {
		b.WriteByte('|')
		if d != nil {
			b.WriteString(d.String())
		}
	}
	write(p.Pricing.CalculatedPrice)
	for _, v := range p.Variants {
		write(v.CalculatedPrice)
	}
	return b.String()
}

func (uc *ProductUC) PriceBook(ctx context.Context) (variants.MaterialPrices, error) {
	return materialBook(ctx, uc.Materials)
}

func validateProduct(in ProductInput, book variants.PriceBook) error {
	verr := &ValidationError{}
	check(verr, "", in)

	if err := variants.Validate(in.Attributes, in.Variants); err != nil {
		verr.add("variants", err.Error())
		return verr
	}
	if len(in.Attributes) > 0 && len(in.Variants) == 0 {
		verr.add("attributes", "every attribute needs at least one value")
	}
	if len(in.Variants) > 0 {
		if missing := variants.Missing(in.Attributes, in.Variants); len(missing) > 0 {
			verr.add("variants", "missing combinations: "+strings.Join(missing, ", "))
			return verr
		}
	}

	if len(in.Variants) == 0 {
		checkPricing(verr, "pricing.", in.Pricing, book)
	}
	skus := map[string]int{}
	for i, v := range in.Variants {
		prefix := fmt.Sprintf("variants[%d].", i)
		checkPricing(verr, prefix, v.Pricing, book)
		check(verr, prefix, stockFields{SKU: v.SKU, Stock: strings.TrimSpace(v.Stock)})
		sku := strings.ToLower(strings.TrimSpace(v.SKU))
		if sku == "" {
			continue
		}
		if j, dup := skus[sku]; dup {
			verr.add(prefix+"sku", fmt.Sprintf("duplicates variants[%d].sku", j))
			continue
		}
		skus[sku] = i
	}
	return verr.orNil()
}

// checkPricing validates only the fields of the active pricing mode.
func checkPricing(verr *ValidationError, prefix string, p variants.Pricing, book variants.PriceBook) {
	if !p.PricingType.Valid() {
		verr.add(prefix+"pricingType", "must be one of: flat dynamic")
		return
	}
	switch r := p.Rule().(type) {
	case variants.FlatRule:
		check(verr, prefix, flatFields{Price: strings.TrimSpace(r.Price)})
	case variants.DynamicRule:
		f := dynamicFields{
			Weight:       strings.TrimSpace(r.Weight),
			MaterialID:   strings.TrimSpace(r.MaterialID),
			MakingCharge: strings.TrimSpace(r.MakingCharge),
		}
		check(verr, prefix, f)
		if f.MaterialID == "" {
			return
		}
		if _, ok := book.PricePerGram(f.MaterialID); !ok {
			verr.add(prefix+"materialId", "unknown material")
		}
	}
}

func applyInput(p *domain.Product, in ProductInput, book variants.PriceBook) {
	p.Name = strings.TrimSpace(in.Name)
	p.Category = strings.TrimSpace(in.Category)
	p.Description = in.Description
	if in.Active != nil {
		p.Active = *in.Active
	}

	p.Pricing = in.Pricing
	if p.Pricing.PricingType == "" {
		p.Pricing.PricingType = variants.PricingFlat
	}
	p.Pricing.Recalculate(book)

	m := variants.NewMatrix(in.Attributes, in.Variants)
	for i := range m.Variants {
		if m.Variants[i].PricingType == "" {
			m.Variants[i].PricingType = variants.PricingFlat
		}
		m.Variants[i].Stock = strings.TrimSpace(m.Variants[i].Stock)
	}
	m.SetPriceBook(book)
	p.Attributes = m.Attributes
	p.Variants = m.Variants
	p.ListPrice = listPrice(p, book)
}

// listPrice is the single price, or the lowest resolvable variant price,
// rounded to cents like the column that stores it.
func listPrice(p *domain.Product, book variants.PriceBook) decimal.Decimal {
	if !p.HasVariants() {
		price, _ := p.Pricing.Resolve(book)
		return price.Round(2)
	}
	var low *decimal.Decimal
	for _, v := range p.Variants {
		price, ok := v.Resolve(book)
		if ok && (low == nil || price.LessThan(*low)) {
			low = &price
		}
	}
	if low == nil {
		return decimal.Zero
	}
	return low.Round(2)
}

func (uc *ProductUC) uniqueSlug(ctx context.Context, base string, id uuid.UUID, explicit bool) (string, error) {
	if base == "" {
		base = id.String()[:8]
	}
	slug := base
	for i := 2; ; i++ {
		taken, err := uc.Products.SlugTaken(ctx, slug, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		if explicit {
			return "", &ValidationError{Fields: map[string]string{"slug": ErrSlugTaken.Error()}}
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

var slugRe = regexp.MustCompile("[^a-z0-9]+")

func GenerateSlug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func materialBook(ctx context.Context, repo domain.MaterialRepo) (variants.MaterialPrices, error) {
	list, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load materials: %w", err)
	}
	return domain.PriceBook(list), nil
}
