// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/swapmart/backend/internal/config"
	"github.com/swapmart/backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), NewGormConfig(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":     cfg.Host,
		"database": cfg.Database,
	}).Info("Database connection established")
	return db, nil
}

// NewGormConfig is shared by the server and the tests. TranslateError makes
// unique violations surface as gorm.ErrDuplicatedKey on every dialect.
func NewGormConfig(logLevel string) *gorm.Config {
	level := logger.Warn
	switch logLevel {
	case "silent":
		level = logger.Silent
	case "info":
		level = logger.Info
	case "error":
		level = logger.Error
	}

	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations")

	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
			return fmt.Errorf("failed to create UUID extension: %w", err)
		}
	}

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.WishlistItem{},
		&models.Order{},
		&models.ShippingInfo{},
		&models.ExchangeRequest{},
		&models.ExchangeStatusHistory{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createConstraints(db); err != nil {
		return fmt.Errorf("failed to create constraints: %w", err)
	}

	createIndexes(db)

	logrus.Info("Database migrations completed")
	return nil
}

// createConstraints installs the indexes that correctness depends on, so any
// failure aborts the migration.
func createConstraints(db *gorm.DB) error {
	constraints := []string{
		// One swap order per (product, buyer): the order idempotency key.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_swap_product_buyer ON orders(product_id, buyer_id) WHERE is_swap_order = true AND deleted_at IS NULL",
		// At most one pending request for the same offered/requested pair.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_exchange_requests_pending_pair ON exchange_requests(offered_product_id, requested_product_id) WHERE status = 'pending' AND deleted_at IS NULL",
	}

	for _, stmt := range constraints {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

func createIndexes(db *gorm.DB) {
	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_owner_status ON products(owner_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_product_buyer ON orders(product_id, buyer_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_swap_created ON orders(is_swap_order, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status, created_at DESC)",

		// Exchange indexes
		"CREATE INDEX IF NOT EXISTS idx_exchange_requests_status ON exchange_requests(status, requested_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_exchange_histories_request ON exchange_status_histories(request_id, changed_at)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_actor_created ON audit_logs(actor_id, created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithError(err).WithField("statement", index).Warn("Failed to create index")
		}
	}
}

// Seed initial data
func SeedInitialData(db *gorm.DB, adminPassword string) error {
	var adminCount int64
	if err := db.Model(&models.User{}).Where("user_type = ?", models.UserTypeAdmin).Count(&adminCount).Error; err != nil {
		return fmt.Errorf("failed to count admins: %w", err)
	}
	if adminCount > 0 {
		return nil
	}

	admin := &models.User{
		Username: "admin",
		Email:    "admin@swapmart.local",
		UserType: models.UserTypeAdmin,
		Status:   models.UserStatusActive,
		ProfileData: models.JSONB{
			"display_name": "System Administrator",
		},
	}

	if err := admin.SetPassword(adminPassword); err != nil {
		return fmt.Errorf("failed to set admin password: %w", err)
	}

	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logrus.WithField("user_id", admin.ID).Info("Default admin user created")
	return nil
}

// WithTransaction runs fn inside a transaction on db. The transaction handle
// is passed explicitly; only this function commits or rolls back.
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			logrus.WithError(rbErr).Error("Transaction rollback failed")
		}
		return err
	}

	return tx.Commit().Error
}
