// Package export writes the product catalogue as spreadsheets, one row per
// sellable variant.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/phenrril/joyeria/internal/domain"
	"github.com/phenrril/joyeria/internal/variants"
)

var Header = []string{"slug", "name", "variant_key", "sku", "pricing_type", "price", "stock"}

// Rows flattens products into export rows. A product without variants gives
// one row with an empty variant key. Prices are resolved with book and left
// blank when they cannot be.
func Rows(products []domain.Product, book variants.PriceBook) [][]string {
	var out [][]string
	for _, p := range products {
		if !p.HasVariants() {
			out = append(out, []string{p.Slug, p.Name, "", "", string(p.Pricing.PricingType), price(p.Pricing, book), ""})
			continue
		}
		for _, v := range p.Variants {
			out = append(out, []string{p.Slug, p.Name, v.Key(), v.SKU, string(v.PricingType), price(v.Pricing, book), v.Stock})
		}
	}
	return out
}

func price(p variants.Pricing, book variants.PriceBook) string {
	d, ok := p.Resolve(book)
	if !ok {
		return ""
	}
	return d.StringFixed(2)
}

func WriteCSV(w io.Writer, products []domain.Product, book variants.PriceBook) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	if err := cw.WriteAll(Rows(products, book)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

const sheet = "Sheet1"

func WriteXLSX(w io.Writer, products []domain.Product, book variants.PriceBook) error {
	f := excelize.NewFile()
	defer f.Close()

	rows := append([][]string{Header}, Rows(products, book)...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
