package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"sorso/internal/packages"

	"github.com/go-pdf/fpdf"
)

// EventInfo is the header of the printed list
type EventInfo struct {
	Title string
	Date  time.Time
}

var (
	pdfHeaders = []string{"Data", "Nome", "Telefono", "Pacchetto", "Tavoli", "Totale", "Note"}
	// landscape A4 is 297mm wide; 14mm margins leave 269mm
	pdfWidths = []float64{38, 45, 32, 28, 16, 28, 82}
)

const (
	pdfMargin    = 14.0
	pdfRowHeight = 7.0
)

// ReservationsPDF writes the reservation list of one night as a landscape A4 document
func ReservationsPDF(w io.Writer, info EventInfo, rows []Row) error {
	catalog := packages.Default()

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, 15, pdfMargin)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Pagina %d di {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range pdfHeaders {
			pdf.CellFormat(pdfWidths[i], pdfRowHeight, tr(h), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr("SORSO CLUB – Prenotazioni"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, tr(info.Title+" – "+ShortDate(info.Date)), "", 1, "L", false, 0, "")
	pdf.Ln(3)
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, r := range rows {
		if pdf.GetY()+pdfRowHeight > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		cells := []string{
			Timestamp(r.CreatedAt),
			r.Name,
			r.Phone,
			catalog.Label(r.Package),
			strconv.Itoa(r.Tables),
			Euro(r.Total),
			r.Notes,
		}
		for i, text := range cells {
			pdf.CellFormat(pdfWidths[i], pdfRowHeight, fit(pdf, tr(text), pdfWidths[i]-2), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(rows) > 0 {
		s := Summarize(rows)
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Totale: %d prenotazioni, %d tavoli, %s", s.Count, s.TotalTables, Euro(s.TotalRevenue))), "", 1, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// fit shortens text with an ellipsis so it stays inside one cell. text is
// already in the single-byte page encoding, so trimming bytes is safe.
func fit(pdf *fpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	for len(text) > 0 && pdf.GetStringWidth(text+"...") > width {
		text = text[:len(text)-1]
	}
	return text + "..."
}
