package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection
type Database struct {
	DB *gorm.DB
}

// NewDatabase connects to PostgreSQL and configures the pool.
// gormLog may be nil, in which case SQL logging is silent.
func NewDatabase(cfg *config.DatabaseConfig, gormLog gormlogger.Interface) (*Database, error) {
	if gormLog == nil {
		gormLog = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// AllModels lists every persistence model, in dependency order.
// Production schemas come from migrations; this is for tests and local tooling.
func AllModels() []any {
	return []any{
		&models.SaleOrderModel{},
		&models.FulfillmentOrderModel{},
		&models.FulfillmentLineModel{},
		&models.ShipmentDocumentModel{},
		&models.InvoiceModel{},
		&models.InvoiceLineModel{},
		&models.DocumentSequenceModel{},
		&models.InventoryLevelModel{},
		&models.InventoryMovementModel{},
		&models.AccountModel{},
		&models.LedgerEntryModel{},
		&models.IdempotencyRecordModel{},
	}
}
