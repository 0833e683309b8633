package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
	"github.com/noah-isme/campus-gradebook-api/pkg/response"
)

const (
	// ClassroomTokenHeader carries the caller's Google Classroom access token.
	ClassroomTokenHeader = "X-Classroom-Token"
	classroomTokenKey    = "classroomToken"
)

// ClassroomToken requires the external classroom access token and stores it
// on the context for ClassroomTokenFrom.
func ClassroomToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(ClassroomTokenHeader))
		if token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrReauthRequired, "Google Classroom access token is missing. Please sign in with Google again."))
			c.Abort()
			return
		}
		c.Set(classroomTokenKey, token)
		c.Next()
	}
}

// ClassroomTokenFrom returns the token stored by ClassroomToken.
func ClassroomTokenFrom(c *gin.Context) string {
	return c.GetString(classroomTokenKey)
}
