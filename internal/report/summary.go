package report

import (
	"time"

	"sorso/internal/packages"

	"github.com/shopspring/decimal"
)

// Row is one reservation as staff see it
type Row struct {
	Ref       string        `json:"ref"`
	CreatedAt time.Time     `json:"created_at"`
	Name      string        `json:"name"`
	Phone     string        `json:"phone"`
	Package   packages.Code `json:"package"`
	Tables    int           `json:"tables"`
	Total     float64       `json:"total"`
	Notes     string        `json:"notes"`
}

type PackageSummary struct {
	Tables  int     `json:"tables"`
	Revenue float64 `json:"revenue"`
	Count   int     `json:"count"`
}

// Summary aggregates a reservation list per package
type Summary struct {
	ByPackage    map[packages.Code]PackageSummary `json:"by_package"`
	TotalTables  int                              `json:"total_tables"`
	TotalRevenue float64                          `json:"total_revenue"`
	Count        int                              `json:"count"`
}

// Summarize totals tables, revenue and reservation count. Every known package
// is present in ByPackage even when it has no reservations.
func Summarize(rows []Row) Summary {
	tables := map[packages.Code]int{}
	counts := map[packages.Code]int{}
	revenue := map[packages.Code]decimal.Decimal{}
	for _, code := range packages.Order {
		revenue[code] = decimal.Zero
	}

	grand := decimal.Zero
	totalTables := 0
	for _, r := range rows {
		tables[r.Package] += r.Tables
		counts[r.Package]++
		amount := decimal.NewFromFloat(r.Total)
		revenue[r.Package] = revenue[r.Package].Add(amount)
		grand = grand.Add(amount)
		totalTables += r.Tables
	}

	byPackage := make(map[packages.Code]PackageSummary, len(revenue))
	for code, amount := range revenue {
		byPackage[code] = PackageSummary{
			Tables:  tables[code],
			Revenue: amount.InexactFloat64(),
			Count:   counts[code],
		}
	}

	return Summary{
		ByPackage:    byPackage,
		TotalTables:  totalTables,
		TotalRevenue: grand.InexactFloat64(),
		Count:        len(rows),
	}
}
