package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeReservationCreated NotificationType = "RESERVATION_CREATED"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusQueued  NotificationStatus = "QUEUED"
	NotificationStatusSending NotificationStatus = "SENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// ReservationAlert tells the staff that a table was just booked
type ReservationAlert struct {
	ID     uuid.UUID          `json:"id"`
	Type   NotificationType   `json:"type"`
	Status NotificationStatus `json:"status"`

	ReservationID uuid.UUID `json:"reservation_id"`
	Ref           string    `json:"ref"`

	EventID    uuid.UUID `json:"event_id"`
	EventTitle string    `json:"event_title"`
	EventDate  string    `json:"event_date"`

	Package      string  `json:"package"`
	PackageLabel string  `json:"package_label"`
	Tables       int     `json:"tables"`
	People       int     `json:"people"`
	Total        float64 `json:"total"`

	Name  string `json:"name"`
	Phone string `json:"phone"`
	Notes string `json:"notes,omitempty"`

	LastError *string   `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReservationAlert stamps a fresh alert
func NewReservationAlert() *ReservationAlert {
	now := time.Now()
	return &ReservationAlert{
		ID:        uuid.New(),
		Type:      NotificationTypeReservationCreated,
		Status:    NotificationStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetPartitionKey keeps all alerts of one night on one partition, in order
func (a *ReservationAlert) GetPartitionKey() string {
	return a.EventID.String()
}

func (a *ReservationAlert) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

func (a *ReservationAlert) MarkSent() {
	a.Status = NotificationStatusSent
	a.UpdatedAt = time.Now()
}

func (a *ReservationAlert) MarkFailed(err error) {
	a.Status = NotificationStatusFailed
	a.UpdatedAt = time.Now()
	errorStr := err.Error()
	a.LastError = &errorStr
}
