package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/joyeria/internal/variants"
)

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;size:140" json:"slug"`
	Name        string    `gorm:"size:180;not null" json:"name"`
	Category    string    `gorm:"size:100;index" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	Active      bool      `gorm:"not null;index" json:"active"`

	// Pricing applies when the product has no variants.
	Pricing variants.Pricing `gorm:"type:jsonb;serializer:json" json:"pricing"`
	// ListPrice is the lowest resolvable price at save time, kept for sorting.
	ListPrice decimal.Decimal `gorm:"type:decimal(14,2);default:0" json:"listPrice"`

	Attributes []variants.Attribute `gorm:"type:jsonb;serializer:json" json:"attributes"`
	Variants   []variants.Variant   `gorm:"type:jsonb;serializer:json" json:"variants"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

type ProductFilter struct {
	Query      string
	Category   string
	ActiveOnly bool
	Page       int
	PageSize   int
	Sort       string
}
