// Package report formats reservation data for staff: Italian money and dates,
// per-package summaries and the printable PDF list.
package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var italian = message.NewPrinter(language.Italian)

// Euro formats an amount the Italian way, e.g. "1.260,00 €"
func Euro(v float64) string {
	rounded := decimal.NewFromFloat(v).Round(2).InexactFloat64()
	return italian.Sprintf("%.2f €", rounded)
}

var (
	dayAbbrev   = [...]string{"DOM", "LUN", "MAR", "MER", "GIO", "VEN", "SAB"}
	monthAbbrev = [...]string{"GEN", "FEB", "MAR", "APR", "MAG", "GIU", "LUG", "AGO", "SET", "OTT", "NOV", "DIC"}
)

// DateLabel renders a night as "VEN 17 OTT"
func DateLabel(d time.Time) string {
	return fmt.Sprintf("%s %02d %s", dayAbbrev[d.Weekday()], d.Day(), monthAbbrev[d.Month()-1])
}

// ShortDate renders dd/mm/yyyy
func ShortDate(d time.Time) string {
	return d.Format("02/01/2006")
}

// Timestamp renders the moment a reservation was taken, in local time
func Timestamp(t time.Time) string {
	return t.Local().Format("02/01/2006, 15:04:05")
}

// Filename is the download name of the PDF for a night (date as YYYY-MM-DD)
func Filename(date string) string {
	return "prenotazioni_" + date + ".pdf"
}
