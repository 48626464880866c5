package reservations

import (
	"context"
	"errors"
	"fmt"

	"sorso/internal/availability"
	"sorso/internal/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// CreateAtomic checks capacity and books the tables in one transaction
	CreateAtomic(ctx context.Context, reservation *Reservation) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Reservation, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateAtomic(ctx context.Context, reservation *Reservation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the event row so activation changes wait for us
		var event events.Event
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", reservation.EventID).
			First(&event).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return events.ErrEventNotFound
			}
			return fmt.Errorf("failed to lock event: %w", err)
		}
		if !event.Active {
			return ErrEventInactive
		}

		// 2. Lock the package row; concurrent bookings of the same zone queue here
		var row availability.PackageAvailability
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("event_id = ? AND package = ?", reservation.EventID, reservation.Package).
			First(&row).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCapacityExceeded
			}
			return fmt.Errorf("failed to lock package row: %w", err)
		}

		// 3. Capacity check
		if reservation.Tables > row.Remaining() {
			return ErrCapacityExceeded
		}

		// 4. Insert and book
		if reservation.Status == "" {
			reservation.Status = StatusConfirmed
		}
		if err := tx.Create(reservation).Error; err != nil {
			return fmt.Errorf("failed to insert reservation: %w", err)
		}

		res := tx.Model(&availability.PackageAvailability{}).
			Where("event_id = ? AND package = ?", reservation.EventID, reservation.Package).
			Update("booked_tables", gorm.Expr("booked_tables + ?", reservation.Tables))
		if res.Error != nil {
			return fmt.Errorf("failed to update booked tables: %w", res.Error)
		}
		return nil
	})
}

// ListByEvent returns the reservations of one night, newest first
func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]Reservation, error) {
	var out []Reservation
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
