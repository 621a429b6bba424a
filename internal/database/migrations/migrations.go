package migrations

import (
	"log"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/mentorlink/backend/internal/models"
	"gorm.io/gorm"
)

// migrationsList holds all migrations
var migrationsList = []*gormigrate.Migration{
	AddPaymentTransactionIndex(),
}

// AllModels lists every persisted model in dependency order
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.MentoringService{},
		&models.MentoringSession{},
		&models.SessionUpdateLog{},
		&models.Practice{},
		&models.ReferralCode{},
		&models.ReferralUsage{},
		&models.Booking{},
		&models.BookingParticipant{},
		&models.PracticePurchase{},
		&models.Payment{},
		&models.ReferralCommission{},
		&models.CommissionPayment{},
	}
}

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrationsList)
	m.InitSchema(func(tx *gorm.DB) error {
		return tx.AutoMigrate(AllModels()...)
	})

	if err := m.Migrate(); err != nil {
		log.Printf("Could not migrate: %v", err)
		return err
	}
	log.Printf("Migrations ran successfully")
	return nil
}
