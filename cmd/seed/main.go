package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"sorso/internal/auth"
	"sorso/internal/availability"
	"sorso/internal/events"
	"sorso/internal/packages"
	"sorso/internal/shared/config"
	"sorso/internal/shared/database"
	"sorso/internal/users"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type Seeder struct {
	db       *database.DB
	accounts auth.Repository
	auth     auth.Service
	now      time.Time
}

type seedEvent struct {
	title  string
	offset int // days from today
	active bool
	totals availability.Totals
	booked map[packages.Code]int
}

func main() {
	_ = godotenv.Load()
	fmt.Println("🌱 Starting Sorso database seeder...")

	cfg := config.Load()

	db, err := database.InitDB(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	accounts := auth.NewRepository(db.PostgreSQL)
	seeder := &Seeder{
		db:       db,
		accounts: accounts,
		auth:     auth.NewService(accounts, nil, cfg, nil),
		now:      time.Now().UTC(),
	}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed")
}

// CleanDatabase truncates every table, children first
func (s *Seeder) CleanDatabase() error {
	tables := []string{"reservations", "event_packages", "events", "users"}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	staff, err := s.SeedStaff()
	if err != nil {
		return fmt.Errorf("failed to seed staff: %w", err)
	}

	if err := s.SeedEvents(staff); err != nil {
		return fmt.Errorf("failed to seed events: %w", err)
	}

	// cached listings would otherwise hide the fresh rows
	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}
	return nil
}

// SeedStaff creates the staff account from SEED_STAFF_EMAIL / SEED_STAFF_PASSWORD
func (s *Seeder) SeedStaff() (*users.User, error) {
	fmt.Println("  👤 Seeding staff user...")

	email := getEnv("SEED_STAFF_EMAIL", "staff@sorsoclub.it")
	password := getEnv("SEED_STAFF_PASSWORD", "sorso-staff")

	ctx := context.Background()
	if _, err := s.auth.CreateStaff(ctx, "Staff Sorso", email, password, users.RoleStaff); err != nil {
		return nil, fmt.Errorf("failed to create user %s: %w", email, err)
	}
	user, err := s.accounts.FindStaffByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	fmt.Printf("    ✅ Created user: %s (%s)\n", user.Email, user.Role)
	return user, nil
}

// SeedEvents creates a few nights with their package inventory
func (s *Seeder) SeedEvents(staff *users.User) error {
	fmt.Println("  🎉 Seeding events...")

	data := []seedEvent{
		{
			title:  "Venerdì Italiano",
			offset: daysUntil(s.now, time.Friday),
			active: true,
			totals: availability.Totals{packages.Base: 20, packages.Premium: 20, packages.Elite: 10},
			booked: map[packages.Code]int{packages.Premium: 18, packages.Base: 4},
		},
		{
			title:  "Sabato Privé",
			offset: daysUntil(s.now, time.Saturday),
			active: true,
			totals: availability.DefaultTotals(),
		},
		{
			title:  "Reggaeton Night",
			offset: daysUntil(s.now, time.Saturday) + 7,
			active: true,
			totals: availability.Totals{packages.Base: 30, packages.Premium: 15},
		},
		{
			title:  "Closing Party",
			offset: daysUntil(s.now, time.Saturday) + 14,
			active: false,
			totals: availability.DefaultTotals(),
		},
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, d := range data {
			day := s.now.AddDate(0, 0, d.offset)
			date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

			ev := &events.Event{
				Title:     d.title,
				Date:      date,
				Code:      events.CodeForDate(date),
				Active:    d.active,
				CreatedBy: &staff.ID,
			}
			if err := tx.Create(ev).Error; err != nil {
				return fmt.Errorf("failed to create event %s: %w", d.title, err)
			}
			// zero-value bools are skipped on insert
			if err := tx.Model(ev).Update("active", d.active).Error; err != nil {
				return err
			}

			for _, code := range packages.Order {
				total, ok := d.totals[code]
				if !ok {
					continue
				}
				row := availability.PackageAvailability{
					EventID:      ev.ID,
					Package:      code,
					TotalTables:  total,
					BookedTables: d.booked[code],
				}
				if err := tx.Create(&row).Error; err != nil {
					return fmt.Errorf("failed to create %s row for %s: %w", code, d.title, err)
				}
			}
			fmt.Printf("    ✅ Created event: %s (%s, active=%t)\n", ev.Title, date.Format(events.DateLayout), d.active)
		}
		return nil
	})
}

// daysUntil is how many days from now to the next wd, today included
func daysUntil(now time.Time, wd time.Weekday) int {
	return (int(wd) - int(now.Weekday()) + 7) % 7
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
