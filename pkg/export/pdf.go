package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

// landscapeColumns is the column count above which pages switch to landscape.
const landscapeColumns = 7

// renderPDF lays the dataset out as a titled table, repeating the header
// row on every page. Numeric cells are right aligned.
func renderPDF(data Dataset) ([]byte, error) {
	records, err := data.records()
	if err != nil {
		return nil, err
	}
	orientation, usable := "P", 190.0
	if len(data.Headers) > landscapeColumns {
		orientation, usable = "L", 277.0
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
	}
	if data.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(data.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	colWidth := usable / float64(len(data.Headers))
	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range records[0] {
			pdf.CellFormat(colWidth, 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, record := range records[1:] {
		if pdf.GetY()+7 > pageHeight-bottom-10 {
			pdf.AddPage()
			header()
		}
		for _, cell := range record {
			align := "L"
			if _, err := strconv.ParseFloat(cell, 64); err == nil {
				align = "R"
			}
			pdf.CellFormat(colWidth, 7, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
