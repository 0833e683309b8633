package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
)

var errNoHeaders = errors.New("export requires at least one header")

// records flattens the dataset into header order, header row first. Cells
// missing from a row render empty.
func (d Dataset) records() ([][]string, error) {
	if len(d.Headers) == 0 {
		return nil, errNoHeaders
	}
	out := make([][]string, 0, len(d.Rows)+1)
	out = append(out, append([]string(nil), d.Headers...))
	for _, row := range d.Rows {
		record := make([]string, len(d.Headers))
		for i, h := range d.Headers {
			record[i] = row[h]
		}
		out = append(out, record)
	}
	return out, nil
}

// renderCSV writes the header and data rows only; title and subtitle are left
// out so spreadsheets import the file as a plain table.
func renderCSV(data Dataset) ([]byte, error) {
	records, err := data.records()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
