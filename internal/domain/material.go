package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/phenrril/joyeria/internal/variants"
)

// Material is a precious metal or alloy priced per gram, e.g. 22K gold.
type Material struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string          `gorm:"size:100;uniqueIndex;not null" json:"name"`
	PricePerGram decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"pricePerGram"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// PriceBook indexes materials by id for price calculation.
func PriceBook(list []Material) variants.MaterialPrices {
	book := make(variants.MaterialPrices, len(list))
	for _, m := range list {
		book[m.ID.String()] = m.PricePerGram
	}
	return book
}
