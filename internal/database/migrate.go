package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the given tables. Services call it at
// deploy time (cmd/tools/migrate) or at boot when DB_AUTO_MIGRATE is on.
func Migrate(db *gorm.DB, models ...any) error {
	if len(models) == 0 {
		return nil
	}
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}
