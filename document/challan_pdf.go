package document

import (
	"bytes"
	"fmt"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"roadcam/storage"
)

// BuildChallanPDF renders a printable challan. Layout is deliberately plain:
// header, a two-column field table, and the plate status note.
func BuildChallanPDF(c *storage.Challan, v *storage.Violation) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "TRAFFIC VIOLATION E-CHALLAN", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Challan Number", c.ChallanNumber},
		{"Violation", formatViolationType(c.ViolationType)},
		{"Fine Amount", fmt.Sprintf("%.2f", c.FineAmount)},
		{"Issued At", c.CreatedAt.Format("2006-01-02 15:04:05")},
	}
	if c.PlateReadable && c.PlateNumber != "" {
		rows = append(rows, [2]string{"Plate Number", c.PlateNumber})
	} else {
		rows = append(rows, [2]string{"Plate Number", "UNREADABLE"})
	}
	if v != nil {
		if v.Speed != nil {
			rows = append(rows, [2]string{"Recorded Speed", fmt.Sprintf("%.1f km/h", *v.Speed)})
		}
		rows = append(rows, [2]string{"Evidence Confidence", fmt.Sprintf("%.0f%%", v.Confidence*100)})
	}

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "1", 1, "L", false, 0, "")
	}

	if c.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, c.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render challan PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// formatViolationType turns a stored type like "no_helmet" into a display
// label like "No Helmet".
func formatViolationType(t string) string {
	words := strings.Split(strings.ReplaceAll(t, "_", " "), " ")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
