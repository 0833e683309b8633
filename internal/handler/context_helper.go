package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-gradebook-api/internal/middleware"
	"github.com/noah-isme/campus-gradebook-api/internal/service"
	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
	"github.com/noah-isme/campus-gradebook-api/pkg/response"
)

// actorFromContext returns the authenticated caller, writing a 401 when the
// request carries no verified claims.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.Actor{}, false
	}
	return service.ActorFromClaims(claims), true
}

// int64Param parses a positive numeric path parameter, writing a 400 when it
// is malformed.
func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+name))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return false
	}
	return true
}
