package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lessonhub/platform/internal/models"
	"github.com/lessonhub/platform/internal/transport"
)

// AdminOnly must run after RequireLogin.
func (s *SessionValidator) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil || user.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, transport.ReasonForbidden)
		}
		return next(c)
	}
}
