package events

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format of an event night
const DateLayout = "2006-01-02"

// Event is one club night. Events are never hard-deleted; staff flip Active off.
type Event struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	Code      string     `json:"code" gorm:"type:varchar(3);not null"`
	Title     string     `json:"title" gorm:"not null;size:255"`
	Date      time.Time  `json:"date" gorm:"type:date;not null;index"`
	PosterURL *string    `json:"poster_url" gorm:"size:1024"`
	Active    bool       `json:"active" gorm:"not null;default:true;index"`
	CreatedBy *uuid.UUID `json:"created_by" gorm:"type:uuid"`
	CreatedAt time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

type EventResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	PosterURL *string   `json:"poster_url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateEventRequest struct {
	Title     string  `json:"title" validate:"required,max=255"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Code      string  `json:"code" validate:"omitempty,oneof=sun mon tue wed thu fri sat"`
	PosterURL *string `json:"poster_url" validate:"omitempty,max=1024"`
	Active    *bool   `json:"active"`
}

type UpdateEventRequest struct {
	Title     *string `json:"title" validate:"omitempty,max=255"`
	Date      *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	PosterURL *string `json:"poster_url" validate:"omitempty,max=1024"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

var weekdayCodes = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// CodeForDate returns the weekday code of the night (sun..sat)
func CodeForDate(d time.Time) string {
	return weekdayCodes[d.Weekday()]
}

// ParseDate parses a YYYY-MM-DD night date
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// ToResponse converts an Event into its API shape
func (e *Event) ToResponse() EventResponse {
	return EventResponse{
		ID:        e.ID.String(),
		Code:      e.Code,
		Title:     e.Title,
		Date:      e.Date.Format(DateLayout),
		PosterURL: e.PosterURL,
		Active:    e.Active,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func toResponses(list []Event) []EventResponse {
	out := make([]EventResponse, len(list))
	for i := range list {
		out[i] = list[i].ToResponse()
	}
	return out
}
