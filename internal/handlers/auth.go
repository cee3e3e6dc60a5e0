package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/lessonhub/platform/internal/hash"
	"github.com/lessonhub/platform/internal/logging"
	mwauth "github.com/lessonhub/platform/internal/middleware/auth"
	"github.com/lessonhub/platform/internal/models"
	"github.com/lessonhub/platform/internal/mykafka"
	"github.com/lessonhub/platform/internal/tokens"
	"github.com/lessonhub/platform/internal/transport"
)

const resetTokenTTL = time.Hour

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte

	// TokenTTL is the bearer token lifetime; ActiveWindow is the trailing
	// window during which an existing session blocks a new login.
	TokenTTL     time.Duration
	ActiveWindow time.Duration

	Producer EventPublisher
	Mailer   Mailer
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	var existing models.User
	err = h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	user := models.User{
		Email:        req.Email,
		Name:         req.Name,
		Phone:        req.Phone,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
		Tier:         models.TierFree,
		Active:       true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	// Signup succeeds even when the welcome mail does not go out.
	if h.Mailer != nil {
		if err := h.Mailer.Send(c.Request().Context(), user.Email, "Welcome to LessonHub",
			fmt.Sprintf("Hi %s,\n\nYour account is ready. Enjoy the free lessons and upgrade any time.\n", user.Name),
		); err != nil {
			logging.FromContext(c.Request().Context()).Error("welcome email failed", "user_id", user.ID, "error", err)
		}
	}

	publish(c, h.Producer, mykafka.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	})

	return c.JSON(http.StatusCreated, transport.NewUserResponse(&user))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown email and wrong password are indistinguishable.
			return echo.NewHTTPError(http.StatusUnauthorized, transport.ReasonInvalidCredentials)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, transport.ReasonInvalidCredentials)
	}

	if !user.Active {
		return echo.NewHTTPError(http.StatusForbidden, transport.ReasonAccountDeactivated)
	}

	// Concurrent-session guard: a session seen alive inside the trailing
	// window blocks the new login instead of silently evicting it. Two
	// logins racing inside the window resolve last-write-wins below.
	if user.SessionID != "" && user.LastActiveAt != nil &&
		time.Since(*user.LastActiveAt) < h.ActiveWindow {
		return echo.NewHTTPError(http.StatusConflict, transport.ReasonSessionActive)
	}

	sessionID := uuid.NewString()
	now := time.Now().UTC()
	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"session_id":     sessionID,
		"last_active_at": now,
	}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	user.SessionID = sessionID
	user.LastActiveAt = &now

	token, exp, err := tokens.Sign(user.ID, user.Role, sessionID, h.JWTSecret, h.TokenTTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	publish(c, h.Producer, mykafka.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_logged_in",
		"user_id": user.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"token":      token,
		"expires_at": exp,
		"user":       transport.NewUserResponse(&user),
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	user := mwauth.CurrentUser(c)

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"session_id":     "",
		"last_active_at": nil,
	}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user := mwauth.CurrentUser(c)
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}

// Heartbeat exists for the client's periodic probe. The interesting work
// (session and activity checks) already happened in the middleware.
func (h *AuthHandler) Heartbeat(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req transport.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "email not registered")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	token := hex.EncodeToString(raw)

	expires := time.Now().UTC().Add(resetTokenTTL)
	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"reset_token_hash":       hash.Sha256Hex(token),
		"reset_token_expires_at": expires,
	}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	// The raw token goes out by mail only; the reply stays "sent" even on
	// delivery failure so the caller learns nothing extra.
	if h.Mailer != nil {
		if err := h.Mailer.Send(c.Request().Context(), user.Email, "Reset your LessonHub password",
			fmt.Sprintf("Hi %s,\n\nUse this token within one hour to reset your password:\n\n%s\n", user.Name, token),
		); err != nil {
			logging.FromContext(c.Request().Context()).Error("reset email failed", "user_id", user.ID, "error", err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "email sent"})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req transport.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	digest := hash.Sha256Hex(req.Token)

	var user models.User
	err := h.DB.Where("reset_token_hash = ? AND reset_token_hash <> ''", digest).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Consumed, expired and unknown tokens all look the same.
			return echo.NewHTTPError(http.StatusBadRequest, transport.ReasonInvalidOrExpiredToken)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if user.ResetTokenExpiresAt == nil || time.Now().After(*user.ResetTokenExpiresAt) {
		return echo.NewHTTPError(http.StatusBadRequest, transport.ReasonInvalidOrExpiredToken)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"password_hash":          pwHash,
		"reset_token_hash":       "",
		"reset_token_expires_at": nil,
	}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
