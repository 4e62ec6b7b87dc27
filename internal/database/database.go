package database

import (
	"fmt"
	"log"

	"referral-ledger/internal/config"
	"referral-ledger/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the database selected by DB_DRIVER
func Connect(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.SQLitePath)
	default:
		dialector = postgres.Open(cfg.GetDSN())
	}

	db, err := Open(dialector, logger.Default.LogMode(logger.Error))
	if err != nil {
		return nil, err
	}

	log.Printf("Database connection established successfully (%s)", cfg.Database.Driver)
	return db, nil
}

// Open wraps gorm.Open with the settings the ledger relies on: unique violations
// surface as gorm.ErrDuplicatedKey, and SQLite gets a single connection because
// it serializes writers anyway.
func Open(dialector gorm.Dialector, gormLogger logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gormLogger,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Ledger models
	ledgerModels := []interface{}{
		&models.Account{},
		&models.ReferralEdge{},
		&models.WithdrawalRequest{},
		&models.QuotaResetMarker{},
	}

	for _, model := range ledgerModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	// Device verification models
	deviceModels := []interface{}{
		&models.DeviceBinding{},
		&models.VerificationChallenge{},
	}

	for _, model := range deviceModels {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migration failed for %T: %w", model, err)
		}
	}

	// Admin audit trail is not load-bearing for the ledger
	if err := db.AutoMigrate(&models.AdminLog{}); err != nil {
		log.Printf("Warning: migration issue for %T: %v", &models.AdminLog{}, err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}
