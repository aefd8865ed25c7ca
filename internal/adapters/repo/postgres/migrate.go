package postgres

import (
	"gorm.io/gorm"

	"github.com/phenrril/joyeria/internal/domain"
)

// Migrate creates the tables. Index statements that only postgres understands
// are skipped on other dialects.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Product{}, &domain.Material{}, &domain.Customer{}); err != nil {
		return err
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	_ = db.Exec("CREATE INDEX IF NOT EXISTS idx_products_attributes_gin ON products USING gin (attributes)").Error
	_ = db.Exec("CREATE INDEX IF NOT EXISTS idx_products_variants_gin ON products USING gin (variants)").Error
	_ = db.Exec("CREATE INDEX IF NOT EXISTS idx_products_list_price ON products (list_price)").Error
	_ = db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_customers_email_lower ON customers (LOWER(email))").Error
	return nil
}
