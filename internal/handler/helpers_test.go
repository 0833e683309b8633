package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-gradebook-api/internal/middleware"
	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/service"
)

var (
	professorClaims = &models.JWTClaims{AccountID: 20, ProfileID: 7, Role: models.RoleProfessor}
	studentClaims   = &models.JWTClaims{AccountID: 30, ProfileID: 101, Role: models.RoleStudent}
	adminClaims     = &models.JWTClaims{AccountID: 1, Role: models.RoleAdmin}
)

type testEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"error"`
}

// newTestContext builds a gin context for a handler call. body is JSON
// encoded unless it is already a string.
func newTestContext(t *testing.T, method, target string, body interface{}, claims *models.JWTClaims, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	var payload []byte
	switch v := body.(type) {
	case nil:
	case string:
		payload = []byte(v)
	default:
		var err error
		payload, err = json.Marshal(v)
		require.NoError(t, err)
	}
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(payload))
	if payload != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	c.Params = params
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func idParam(value string) gin.Param {
	return gin.Param{Key: "id", Value: value}
}

func actorOf(claims *models.JWTClaims) service.Actor {
	return service.ActorFromClaims(claims)
}
