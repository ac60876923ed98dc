package handler

import (
	"oryon/internal/middleware"
	"oryon/internal/service"
	"oryon/pkg/apperr"
	"oryon/pkg/response"

	"github.com/gin-gonic/gin"
)

// fail writes the standard error envelope for a service error, mapping the
// apperr kind to an HTTP status.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	c.JSON(status, response.ErrorWithKind(status, string(apperr.KindOf(err)), err.Error()))
}

// actorFrom builds the acting identity from the claims RequireRole stored.
func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{
		UserID:    middleware.ActorIDFrom(c),
		Name:      c.GetString("userName"),
		CompanyID: c.GetString("userCompany"),
	}
}

// okMaybeWarn writes a success envelope, attaching the warning when a
// secondary failure (audit/upload/print) was swallowed.
func okMaybeWarn(c *gin.Context, status int, data interface{}, warning string) {
	if warning != "" {
		c.JSON(status, response.SuccessWithWarning(status, data, warning))
		return
	}
	c.JSON(status, response.Success(status, data))
}
