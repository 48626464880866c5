package client

import (
	"time"

	"sorso/internal/packages"
	"sorso/internal/report"
)

type Event struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Date      string    `json:"date"` // YYYY-MM-DD
	PosterURL *string   `json:"poster_url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Night parses Date; the zero time means the backend sent something odd
func (e Event) Night() time.Time {
	d, _ := time.Parse("2006-01-02", e.Date)
	return d
}

type PackageAvailability struct {
	Package      packages.Code `json:"package"`
	TotalTables  int           `json:"total_tables"`
	BookedTables int           `json:"booked_tables"`
	Remaining    int           `json:"remaining"`
}

// Totals maps a package to its number of tables
type Totals map[packages.Code]int

type Catalog struct {
	PeoplePerTable int              `json:"people_per_table"`
	Default        packages.Code    `json:"default"`
	Packages       []packages.Entry `json:"packages"`
}

type ReservationInput struct {
	EventID string        `json:"event_id"`
	Package packages.Code `json:"package"`
	Tables  int           `json:"tables"`
	Name    string        `json:"name"`
	Phone   string        `json:"phone"`
	Notes   string        `json:"notes,omitempty"`
	Total   *float64      `json:"total,omitempty"`
}

type Reservation struct {
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
	Status    string        `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// Row converts a reservation into the report line staff print
func (r Reservation) Row() report.Row {
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

type EventReservations struct {
	Event        Event          `json:"event"`
	Reservations []Reservation  `json:"reservations"`
	Summary      report.Summary `json:"summary"`
}

type EventInput struct {
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	Code      string  `json:"code,omitempty"`
	PosterURL *string `json:"poster_url,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

type EventPatch struct {
	Title     *string `json:"title,omitempty"`
	Date      *string `json:"date,omitempty"`
	PosterURL *string `json:"poster_url,omitempty"`
}

// Download is a binary response such as the PDF export
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is a signed-in staff member's tokens
type Session struct {
	User         User      `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionInfo is the backend's view of the presented token
type SessionInfo struct {
	Active    bool       `json:"active"`
	UserID    string     `json:"user_id,omitempty"`
	Email     string     `json:"email,omitempty"`
	Role      string     `json:"role,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// StorageObject is one listing entry; folders have no ID
type StorageObject struct {
	Name      string     `json:"name"`
	ID        *string    `json:"id"`
	Size      int64      `json:"size"`
	UpdatedAt *time.Time `json:"updated_at"`
}

func (o StorageObject) IsFolder() bool { return o.ID == nil }

type StorageFile struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

type ListOptions struct {
	Limit  int
	Offset int
	SortBy string // name or updated_at
	Desc   bool
}

type UploadOptions struct {
	ContentType string
	Upsert      bool
}

type UploadedObject struct {
	Path      string `json:"path"`
	PublicURL string `json:"public_url,omitempty"`
}

type SignedURL struct {
	SignedURL string    `json:"signed_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
