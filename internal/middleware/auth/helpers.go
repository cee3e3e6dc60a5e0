package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lessonhub/platform/internal/models"
)

const userContextKey = "user"

func setUserContext(c echo.Context, u *models.User) {
	c.Set(userContextKey, u)
	c.Set("userID", u.ID)
	c.Set("role", u.Role)
}

// CurrentUser returns the user loaded by RequireLogin, or nil outside of an
// authenticated route.
func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
