package availability

import (
	"context"
	"sort"

	"sorso/internal/packages"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]PackageAvailability, error)
	CreateRows(ctx context.Context, eventID uuid.UUID, totals Totals) error
	UpdateTotals(ctx context.Context, eventID uuid.UUID, totals Totals) ([]PackageAvailability, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]PackageAvailability, error) {
	var rows []PackageAvailability
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	sortRows(rows)
	return rows, nil
}

// CreateRows inserts one row per package with booked = 0. Existing rows are left alone.
func (r *repository) CreateRows(ctx context.Context, eventID uuid.UUID, totals Totals) error {
	rows := make([]PackageAvailability, 0, len(totals))
	for _, code := range packages.Order {
		total, ok := totals[code]
		if !ok {
			continue
		}
		rows = append(rows, PackageAvailability{EventID: eventID, Package: code, TotalTables: total})
	}
	if len(rows) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// UpdateTotals rewrites the totals of an event under row locks. If any proposed
// total is lower than the tables already booked nothing is written.
func (r *repository) UpdateTotals(ctx context.Context, eventID uuid.UUID, totals Totals) ([]PackageAvailability, error) {
	var result []PackageAvailability

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked []PackageAvailability
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("event_id = ?", eventID).
			Find(&locked).Error; err != nil {
			return err
		}

		current := make(map[packages.Code]PackageAvailability, len(locked))
		for _, row := range locked {
			current[row.Package] = row
		}

		var violations []FloorViolation
		for _, code := range packages.Order {
			proposed, ok := totals[code]
			if !ok {
				continue
			}
			if row, exists := current[code]; exists && proposed < row.BookedTables {
				violations = append(violations, FloorViolation{Package: code, Proposed: proposed, Booked: row.BookedTables})
			}
		}
		if len(violations) > 0 {
			return &BelowBookedError{Violations: violations}
		}

		for _, code := range packages.Order {
			proposed, ok := totals[code]
			if !ok {
				continue
			}
			if _, exists := current[code]; exists {
				if err := tx.Model(&PackageAvailability{}).
					Where("event_id = ? AND package = ?", eventID, code).
					Update("total_tables", proposed).Error; err != nil {
					return err
				}
				continue
			}
			row := PackageAvailability{EventID: eventID, Package: code, TotalTables: proposed}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		return tx.Where("event_id = ?", eventID).Find(&result).Error
	})
	if err != nil {
		return nil, err
	}

	sortRows(result)
	return result, nil
}

func sortRows(rows []PackageAvailability) {
	rank := map[packages.Code]int{}
	for i, code := range packages.Order {
		rank[code] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rank[rows[i].Package] < rank[rows[j].Package]
	})
}
