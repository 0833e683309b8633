package export

import (
	"fmt"
	"strings"
)

// Format identifies a supported export encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Title    string
	Subtitle string
	Headers  []string
	Rows     []map[string]string
}

// Document is a rendered export ready to be streamed.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ParseFormat normalises a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// Render encodes the dataset in the requested format. baseName is used for the
// download filename without extension.
func Render(format Format, baseName string, data Dataset) (*Document, error) {
	switch format {
	case FormatCSV:
		body, err := renderCSV(data)
		if err != nil {
			return nil, err
		}
		return &Document{Filename: baseName + ".csv", ContentType: "text/csv", Body: body}, nil
	case FormatPDF:
		body, err := renderPDF(data)
		if err != nil {
			return nil, err
		}
		return &Document{Filename: baseName + ".pdf", ContentType: "application/pdf", Body: body}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
