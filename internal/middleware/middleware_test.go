package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
	"github.com/noah-isme/campus-gradebook-api/internal/service"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", append(handlers, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})...)
	return router
}

func TestJWT(t *testing.T) {
	auth := &stubValidator{claims: &models.JWTClaims{AccountID: 20, ProfileID: 7, Role: models.RoleProfessor}}
	router := newRouter(JWT(auth), RequireRoles(models.RoleProfessor, models.RoleAdmin))

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{name: "missing header", header: "", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "invalid token", header: "Bearer nope", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "valid token", header: "bearer good", status: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			if tc.code != "" {
				assert.Equal(t, tc.code, errorCode(t, rec))
			}
		})
	}
	assert.Equal(t, "good", auth.seen)
}

func TestRequireRolesRejectsOtherRoles(t *testing.T) {
	auth := &stubValidator{claims: &models.JWTClaims{AccountID: 30, ProfileID: 101, Role: models.RoleStudent}}
	router := newRouter(JWT(auth), RequireRoles(models.RoleAdmin))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	rec = httptest.NewRecorder()
	newRouter(RequireRoles(models.RoleAdmin)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClassroomToken(t *testing.T) {
	var seen string
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", ClassroomToken(), func(c *gin.Context) {
		seen = ClassroomTokenFrom(c)
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "REAUTH_REQUIRED", errorCode(t, rec))

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ClassroomTokenHeader, " ya29.token ")
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "ya29.token", seen)
}

func TestMetricsAndResponseMeta(t *testing.T) {
	metrics := service.NewMetricsService()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Metrics(metrics), WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/cached", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cached", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, true, meta[cacheHitKey])
	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}
