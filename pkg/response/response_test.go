package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestErrorEnvelopeKeepsTypedStatus(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.Clone(appErrors.ErrConflict, "Cannot permanently delete department. It has 2 course(s)."))

	assert.Equal(t, http.StatusConflict, w.Code)
	var body struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "CONFLICT", body.Error.Code)
	assert.Contains(t, body.Error.Message, "2 course(s)")
}

func TestErrorEnvelopeHidesUntypedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
	assert.Len(t, c.Errors, 1)
}

func TestAttachmentSetsDisposition(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Attachment(c, "gradebook.csv", "text/csv", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="gradebook.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", w.Body.String())
}
