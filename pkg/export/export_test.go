package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Gradebook",
		Headers: []string{"Student", "Quizzes", "Final Grade"},
		Rows: []map[string]string{
			{"Student": "Cruz, Ana", "Quizzes": "92.50", "Final Grade": "90.10"},
			{"Student": "Reyes, Ben", "Quizzes": "71.00"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestRenderCSVFillsMissingCells(t *testing.T) {
	doc, err := Render(FormatCSV, "gradebook-1", sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "gradebook-1.csv", doc.Filename)
	assert.Equal(t, "Student,Quizzes,Final Grade\n\"Cruz, Ana\",92.50,90.10\n\"Reyes, Ben\",71.00,\n", string(doc.Body))
}

func TestRenderPDF(t *testing.T) {
	doc, err := Render(FormatPDF, "gradebook-1", sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Body, []byte("%PDF")))
}

func TestRenderRequiresHeaders(t *testing.T) {
	_, err := Render(FormatCSV, "x", Dataset{})
	assert.Error(t, err)
	_, err = Render(FormatPDF, "x", Dataset{})
	assert.Error(t, err)
}
