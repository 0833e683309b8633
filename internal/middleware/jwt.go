package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-gradebook-api/internal/models"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
	"github.com/noah-isme/campus-gradebook-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT protects routes by requiring a valid access token.
func JWT(auth tokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

// CurrentClaims returns the verified claims stored by JWT.
func CurrentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok && claims != nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
