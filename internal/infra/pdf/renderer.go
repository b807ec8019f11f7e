// Package pdf renders prescriptions as Letter-size PDF documents.
package pdf

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

const (
	lineHeight = 7.0
	indent     = 8.0
)

// Renderer lays out a prescription with the core Helvetica fonts. Text is translated to cp1252,
// so characters outside that code page are replaced.
type Renderer struct {
	title string
}

func NewRenderer() *Renderer {
	return &Renderer{title: "Doctor's Prescription"}
}

func (r *Renderer) Render(w io.Writer, p domain.Prescription) error {
	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetTitle(r.title, true)
	doc.SetCreator("Medica", true)
	doc.SetMargins(25, 20, 25)
	doc.SetAutoPageBreak(true, 20)
	doc.AddPage()
	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, tr(r.title), "", 1, "L", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 12)
	details := []string{
		"Disease: " + p.Disease,
		"Age: " + p.Age,
		"Blood Group: " + p.BloodGroup,
		"Symptoms: " + strings.Join(p.Symptoms, ", "),
		"Duration: " + durationText(p.Duration),
	}
	for _, line := range details {
		doc.MultiCell(0, lineHeight, tr(line), "", "L", false)
	}
	doc.Ln(4)

	section(doc, tr, "Medications:")
	for _, med := range p.Treatment.Medications {
		bullet(doc, tr, medicationLine(med))
	}
	doc.Ln(2)

	section(doc, tr, "Lifestyle Recommendations:")
	for _, item := range p.Treatment.Lifestyle {
		bullet(doc, tr, item)
	}
	doc.Ln(2)

	section(doc, tr, "Follow-up:")
	doc.SetX(doc.GetX() + indent)
	doc.MultiCell(0, lineHeight, tr(p.Treatment.Followup), "", "L", false)

	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func section(doc *fpdf.Fpdf, tr func(string) string, title string) {
	doc.SetFont("Helvetica", "B", 14)
	doc.CellFormat(0, 9, tr(title), "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 12)
}

func bullet(doc *fpdf.Fpdf, tr func(string) string, text string) {
	doc.SetX(doc.GetX() + indent)
	doc.MultiCell(0, lineHeight, tr("- "+text), "", "L", false)
}

func medicationLine(med domain.Medication) string {
	var schedule []string
	if med.Intake != "" {
		schedule = append(schedule, med.Intake)
	}
	if med.Timing != "" {
		schedule = append(schedule, med.Timing)
	}
	if len(schedule) == 0 {
		return med.Name
	}
	return fmt.Sprintf("%s (%s)", med.Name, strings.Join(schedule, ", "))
}

func durationText(d string) string {
	if d == "" {
		return ""
	}
	return d + " days"
}

var _ port.PrescriptionRenderer = (*Renderer)(nil)
