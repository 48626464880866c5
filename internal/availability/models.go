package availability

import (
	"time"

	"sorso/internal/packages"

	"github.com/google/uuid"
)

// PackageAvailability is the table inventory of one package on one night.
// Remaining is derived and never stored.
type PackageAvailability struct {
	EventID      uuid.UUID     `json:"event_id" gorm:"type:uuid;primaryKey"`
	Package      packages.Code `json:"package" gorm:"type:varchar(10);primaryKey"`
	TotalTables  int           `json:"total_tables" gorm:"not null;default:0;check:chk_event_packages_total,total_tables >= 0"`
	BookedTables int           `json:"booked_tables" gorm:"not null;default:0;check:chk_event_packages_booked,booked_tables >= 0"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (PackageAvailability) TableName() string {
	return "event_packages"
}

// Remaining is max(0, total - booked)
func (p PackageAvailability) Remaining() int {
	return Remaining(p.TotalTables, p.BookedTables)
}

func Remaining(total, booked int) int {
	if r := total - booked; r > 0 {
		return r
	}
	return 0
}

// Totals maps a package to its table total
type Totals map[packages.Code]int

// DefaultTotals is the inventory a new night starts with
func DefaultTotals() Totals {
	return Totals{packages.Base: 20, packages.Premium: 20, packages.Elite: 20}
}

type AvailabilityResponse struct {
	Package      packages.Code `json:"package"`
	TotalTables  int           `json:"total_tables"`
	BookedTables int           `json:"booked_tables"`
	Remaining    int           `json:"remaining"`
}

type TotalsRequest struct {
	Totals Totals `json:"totals" validate:"required,min=1,dive,keys,oneof=base premium elite,endkeys,min=0,max=500"`
}

// FloorViolation names a package whose proposed total is below what is already sold
type FloorViolation struct {
	Package  packages.Code `json:"package"`
	Proposed int           `json:"proposed"`
	Booked   int           `json:"booked"`
}

func toResponse(p PackageAvailability) AvailabilityResponse {
	return AvailabilityResponse{
		Package:      p.Package,
		TotalTables:  p.TotalTables,
		BookedTables: p.BookedTables,
		Remaining:    p.Remaining(),
	}
}
