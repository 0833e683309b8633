package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var defaultAllowedHeaders = []string{
	"Authorization",
	"Content-Type",
	"X-Requested-With",
	"X-Request-ID",
	"X-Classroom-Token",
}

// New returns a CORS middleware that honors a list of allowed origins. An empty
// list allows any origin. extraHeaders are appended to the allowed request headers.
func New(allowedOrigins []string, extraHeaders ...string) gin.HandlerFunc {
	allowAll := len(allowedOrigins) == 0
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		originSet[strings.TrimRight(origin, "/")] = struct{}{}
	}
	allowedHeaders := strings.Join(append(append([]string{}, defaultAllowedHeaders...), extraHeaders...), ", ")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			if allowAll || hasOrigin(originSet, origin) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			}
		} else if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func hasOrigin(originSet map[string]struct{}, origin string) bool {
	origin = strings.TrimRight(origin, "/")
	_, ok := originSet[origin]
	return ok
}
