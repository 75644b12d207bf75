package router

import (
	"crypto/subtle"
	"strings"

	apperrors "github.com/akeren/waitlist-landing/pkg/errors"
)

const AdminKeyHeader = "X-Admin-Key"

// AdminKeyMiddleware guards operator endpoints with a shared key. An empty
// key disables the guarded routes entirely.
func (routerService *RouterService) AdminKeyMiddleware(key string) MiddlewareFunc {
	expected := []byte(strings.TrimSpace(key))

	return func(c *RequestContext) {
		if len(expected) == 0 {
			routerService.GetLogger(c).Warn("Admin endpoint requested but ADMIN_API_KEY is not set", "path", c.Request.URL.Path)
			abortWithAppError(c, apperrors.NewForbiddenError("Admin API is disabled", nil))
			return
		}

		provided := []byte(strings.TrimSpace(c.GetHeader(AdminKeyHeader)))
		if subtle.ConstantTimeCompare(provided, expected) != 1 {
			routerService.GetLogger(c).Warn("Rejected admin request", "path", c.Request.URL.Path, "client_ip", c.ClientIP())
			abortWithAppError(c, apperrors.NewUnauthorizedError("Invalid or missing admin key", nil))
			return
		}

		c.Next()
	}
}

func abortWithAppError(c *RequestContext, err error) {
	result := ErrorResult(apperrors.HTTPStatusCode(err), apperrors.GetHumanReadableMessage(err), nil)
	c.AbortWithStatusJSON(result.StatusCode, result.ToJSON())
}
