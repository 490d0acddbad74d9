// Package postgres provides the GORM-backed durable stores: the access log
// and, when configured, the rate-limit counter.
package postgres

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/opendgw/odg/internal/config"
	"github.com/opendgw/odg/pkg/errors"
	"github.com/opendgw/odg/pkg/logger"
)

// NewDBConnection opens the postgres database and migrates the gateway
// tables.
func NewDBConnection(cfg *config.DatabaseConfig, log logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.ErrStoreUnavailable("database open failed").WithCause(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.ErrStoreUnavailable("database handle unavailable").WithCause(err)
	}
	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info(context.Background(), "database connection established",
		logger.String("database", cfg.Database),
	)
	return db, nil
}

// Migrate creates the gateway tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&rateLimitRecordRow{}, &accessLogRow{}); err != nil {
		return errors.ErrStoreUnavailable("migration failed").WithCause(err)
	}
	return nil
}
