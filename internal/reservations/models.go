package reservations

import (
	"time"

	"sorso/internal/events"
	"sorso/internal/packages"
	"sorso/internal/report"

	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
)

// Reservation is a confirmed table booking. Rows are written once by the
// atomic procedure and never edited.
type Reservation struct {
	ID        uuid.UUID     `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Ref       string        `json:"ref" gorm:"size:32;not null;uniqueIndex"`
	EventID   uuid.UUID     `json:"event_id" gorm:"type:uuid;not null;index:idx_reservations_event_created,priority:1"`
	Package   packages.Code `json:"package" gorm:"type:varchar(16);not null"`
	Tables    int           `json:"tables" gorm:"not null;check:chk_reservations_tables,tables >= 1"`
	Name      string        `json:"name" gorm:"size:255;not null"`
	Phone     string        `json:"phone" gorm:"size:64;not null"`
	Notes     string        `json:"notes" gorm:"size:1000"`
	Total     float64       `json:"total" gorm:"type:numeric(10,2);not null"`
	Status    Status        `json:"status" gorm:"type:varchar(16);not null;default:'CONFIRMED'"`
	CreatedAt time.Time     `json:"created_at" gorm:"autoCreateTime;index:idx_reservations_event_created,priority:2,sort:desc"`
}

func (Reservation) TableName() string {
	return "reservations"
}

type CreateReservationRequest struct {
	EventID string   `json:"event_id" validate:"required,uuid"`
	Package string   `json:"package" validate:"required,oneof=base premium elite"`
	Tables  int      `json:"tables" validate:"required,min=1,max=100"`
	Name    string   `json:"name" validate:"required,max=255"`
	Phone   string   `json:"phone" validate:"required,max=64"`
	Notes   string   `json:"notes" validate:"max=1000"`
	Total   *float64 `json:"total" validate:"omitempty,min=0"`
}

type ReservationResponse struct {
	ID        string        `json:"id"`
	Ref       string        `json:"ref"`
	EventID   string        `json:"event_id"`
	Package   packages.Code `json:"package"`
	Tables    int           `json:"tables"`
	People    int           `json:"people"`
	Name      string        `json:"name"`
	Phone     string        `json:"phone"`
	Notes     string        `json:"notes"`
	Total     float64       `json:"total"`
	Status    Status        `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// EventReservationsResponse is the staff view of one night
type EventReservationsResponse struct {
	Event        events.EventResponse  `json:"event"`
	Reservations []ReservationResponse `json:"reservations"`
	Summary      report.Summary        `json:"summary"`
}

func toResponse(r *Reservation, catalog *packages.Catalog) ReservationResponse {
	return ReservationResponse{
		ID:        r.ID.String(),
		Ref:       r.Ref,
		EventID:   r.EventID.String(),
		Package:   r.Package,
		Tables:    r.Tables,
		People:    catalog.People(r.Tables),
		Name:      r.Name,
		Phone:     r.Phone,
		Notes:     r.Notes,
		Total:     r.Total,
		Status:    r.Status,
		CreatedAt: r.CreatedAt,
	}
}

func toRow(r *Reservation) report.Row {
	return report.Row{
		Ref:       r.Ref,
		CreatedAt: r.CreatedAt,
		Name:      r.Name,
		Phone:     r.Phone,
		Package:   r.Package,
		Tables:    r.Tables,
		Total:     r.Total,
		Notes:     r.Notes,
	}
}
