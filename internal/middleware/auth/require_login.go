package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/lessonhub/platform/internal/logging"
	"github.com/lessonhub/platform/internal/models"
	"github.com/lessonhub/platform/internal/tokens"
	"github.com/lessonhub/platform/internal/transport"
)

// SessionValidator admits a request only when its bearer token is valid and
// still the account's current session, then touches the activity timestamp.
type SessionValidator struct {
	DB        *gorm.DB
	JWTSecret []byte
}

func (s *SessionValidator) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, transport.ReasonUnauthenticated)
		}

		claims, err := tokens.AccessClaimsFromToken(raw, s.JWTSecret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, transport.ReasonInvalidToken)
		}

		userID, err := claims.UserID()
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, transport.ReasonInvalidToken)
		}

		ctx := c.Request().Context()

		var user models.User
		if err := s.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusUnauthorized, transport.ReasonInvalidToken)
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}

		if !user.Active {
			return echo.NewHTTPError(http.StatusUnauthorized, transport.ReasonAccountDeactivated)
		}

		// A token minted by a prior login carries a session id that no
		// longer matches the stored one once someone logs in again.
		if claims.SessionID != "" && claims.SessionID != user.SessionID {
			return echo.NewHTTPError(http.StatusUnauthorized, transport.ReasonSessionSuperseded)
		}

		// Unconditional write on the hot path; fine at this scale.
		now := time.Now().UTC()
		if err := s.DB.WithContext(ctx).Model(&models.User{}).
			Where("id = ?", user.ID).
			Update("last_active_at", now).Error; err != nil {
			logging.FromContext(ctx).Warn("activity touch failed", "user_id", user.ID, "error", err)
		}
		user.LastActiveAt = &now

		setUserContext(c, &user)
		return next(c)
	}
}
