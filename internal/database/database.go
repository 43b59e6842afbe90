// Package database opens the gorm connection a service's ledger runs on.
package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ThanhMiracle/ecommerce-lambda-aws/internal/config"
)

func Open(cfg config.DBConfig, log *zap.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// unique violations come back as gorm.ErrDuplicatedKey
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.DisablePool {
		// a connection goes back to the server as soon as its request is done
		sqlDB.SetMaxIdleConns(0)
	}
	if strings.EqualFold(cfg.Driver, "sqlite") {
		// sqlite serializes writers anyway; one conn avoids SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
	}

	if log != nil {
		log.Info("database connected",
			zap.String("driver", cfg.Driver),
			zap.String("schema", cfg.Schema),
			zap.Bool("pool_disabled", cfg.DisablePool))
	}
	return db, nil
}

func dialectorFor(cfg config.DBConfig) (gorm.Dialector, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database: empty DSN")
	}
	switch strings.ToLower(cfg.Driver) {
	case "mysql", "":
		return mysql.Open(cfg.DSN), nil
	case "postgres", "postgresql":
		return postgres.Open(withSearchPath(cfg.DSN, cfg.Schema)), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("database: unknown DB_DRIVER %q", cfg.Driver)
	}
}

// withSearchPath pins each service to its own postgres schema.
func withSearchPath(dsn, schema string) string {
	if schema == "" || strings.Contains(dsn, "search_path") {
		return dsn
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + url.QueryEscape(schema)
	}
	// key=value form
	return dsn + " search_path=" + schema
}

// Close releases the underlying pool; used by main on shutdown.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
