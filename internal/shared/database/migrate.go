package database

import (
	"fmt"

	"sorso/internal/availability"
	"sorso/internal/events"
	"sorso/internal/reservations"
	"sorso/internal/users"

	"gorm.io/gorm"
)

// Migrate creates or updates every table, then applies the constraints gorm
// cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}

	err := db.AutoMigrate(
		&users.User{},
		&events.Event{},
		&availability.PackageAvailability{},
		&reservations.Reservation{},
	)
	if err != nil {
		return err
	}

	return MigrateConstraints(db)
}
