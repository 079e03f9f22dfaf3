package database

import (
	"fmt"

	"fencing-backend/models"

	"gorm.io/gorm"
)

// Migrate applies idempotent schema migrations:
// - AutoMigrate (tables/columns/index tags)
// - Indexes that tags cannot express (partial unique payment reference)
// - CHECK constraints on money and stock columns (Postgres only)
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		indexes := []string{
			// keys used to be global; they are unique per user now
			`DROP INDEX IF EXISTS idx_idempotency_keys_key`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_reference_unique ON payments (reference) WHERE reference <> ''`,
			`CREATE INDEX IF NOT EXISTS idx_quotes_customer_status ON fence_quotes (customer_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_notifications_user_read ON notifications (user_id, read_at)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		if tx.Dialector.Name() != "postgres" {
			return nil
		}

		checks := []struct{ table, name, expr string }{
			{"catalog_items", "chk_catalog_items_price_nonneg", "price >= 0"},
			{"catalog_items", "chk_catalog_items_stock_nonneg", "stock_quantity >= 0"},
			{"fencing_addons", "chk_fencing_addons_price_nonneg", "price >= 0"},
			{"fence_quotes", "chk_fence_quotes_dimensions_pos", "length_meters > 0 AND height_meters > 0"},
			{"invoices", "chk_invoices_paid_le_total", "paid_total >= 0 AND paid_total <= total"},
			{"payments", "chk_payments_amount_pos", "amount > 0"},
			{"expenses", "chk_expenses_amount_nonneg", "amount >= 0"},
			{"tax_configs", "chk_tax_configs_rate_range", "rate >= 0 AND rate <= 1"},
		}
		for _, c := range checks {
			stmt := fmt.Sprintf(`DO $$
BEGIN
	IF NOT EXISTS (
		SELECT 1 FROM pg_constraint
		WHERE conrelid = '%[1]s'::regclass
		  AND conname  = '%[2]s'
	) THEN
		ALTER TABLE %[1]s ADD CONSTRAINT %[2]s CHECK (%[3]s);
	END IF;
END $$;`, c.table, c.name, c.expr)
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed on %s: %w", c.name, err)
			}
		}

		return nil
	})
}
