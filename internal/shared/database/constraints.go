package database

import (
	"fmt"

	"gorm.io/gorm"
)

type constraint struct {
	name  string
	table string
	def   string
}

// Foreign keys are disabled in AutoMigrate, so the ones we rely on are added here
var constraints = []constraint{
	// The capacity invariant: no package is ever booked beyond its total
	{"chk_event_packages_capacity", "event_packages", "CHECK (booked_tables <= total_tables)"},
	{"chk_event_packages_package", "event_packages", "CHECK (package IN ('base', 'premium', 'elite'))"},
	{"fk_event_packages_event", "event_packages", "FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE"},
	{"fk_reservations_event", "reservations", "FOREIGN KEY (event_id) REFERENCES events(id)"},
	{"fk_reservations_package", "reservations", "FOREIGN KEY (event_id, package) REFERENCES event_packages(event_id, package)"},
	{"chk_events_code", "events", "CHECK (code IN ('sun', 'mon', 'tue', 'wed', 'thu', 'fri', 'sat'))"},
}

// MigrateConstraints adds the database constraints that back concurrency control.
// Postgres has no ADD CONSTRAINT IF NOT EXISTS, so each one is guarded on pg_constraint.
func MigrateConstraints(db *gorm.DB) error {
	for _, c := range constraints {
		stmt := fmt.Sprintf(`
			DO $$
			BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					ALTER TABLE %s ADD CONSTRAINT %s %s;
				END IF;
			END $$;`, c.name, c.table, c.name, c.def)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", c.name, err)
		}
	}

	// Active listing sorted by date
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_events_active_date
		ON events (active, date);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
