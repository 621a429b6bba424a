package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// AddPaymentTransactionIndex indexes payments by gateway reference so
// callback settlement does not scan the table
func AddPaymentTransactionIndex() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_add_payment_transaction_index",
		Migrate: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE INDEX IF NOT EXISTS idx_payments_transaction_id ON payments(transaction_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP INDEX IF EXISTS idx_payments_transaction_id").Error
		},
	}
}
