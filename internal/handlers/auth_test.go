package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lessonhub/platform/internal/hash"
	"github.com/lessonhub/platform/internal/models"
	"github.com/lessonhub/platform/internal/transport"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", map[string]string{
		"email":    "a@x.com",
		"name":     "Alice",
		"password": "password123",
	})
	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp transport.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "a@x.com", resp.Email)
	require.Equal(t, models.RoleUser, resp.Role)
	require.Equal(t, models.TierFree, resp.Tier)
	require.NotZero(t, resp.ID)
	require.NotContains(t, rec.Body.String(), "password")

	// Welcome mail went out once.
	require.Len(t, env.Mailer.sent, 1)
	require.Equal(t, "a@x.com", env.Mailer.sent[0].To)

	// Duplicate email is rejected.
	_, cDup := env.doJSONRequest(http.MethodPost, "/api/v1/register", map[string]string{
		"email":    "a@x.com",
		"name":     "Alice Again",
		"password": "password123",
	})
	requireHTTPError(t, env.A.Register(cDup), http.StatusConflict, "")
}

func TestRegisterSucceedsWhenWelcomeMailFails(t *testing.T) {
	env := newTestEnv(t)
	env.Mailer.err = errSMTPDown

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", map[string]string{
		"email":    "a@x.com",
		"name":     "Alice",
		"password": "password123",
	})
	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{"missing email", map[string]string{"name": "A", "password": "password123"}},
		{"bad email", map[string]string{"email": "nope", "name": "A", "password": "password123"}},
		{"short password", map[string]string{"email": "a@x.com", "name": "A", "password": "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := env.doJSONRequest(http.MethodPost, "/api/v1/register", tt.payload)
			requireHTTPError(t, env.A.Register(c), http.StatusBadRequest, "")
		})
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("a@x.com", "password123", models.RoleUser, models.TierFree)

	// Unknown email and wrong password produce the identical reason.
	_, _, err := env.login("nobody@x.com", "password123")
	requireHTTPError(t, err, http.StatusUnauthorized, transport.ReasonInvalidCredentials)

	_, _, err = env.login("a@x.com", "wrongpassword")
	requireHTTPError(t, err, http.StatusUnauthorized, transport.ReasonInvalidCredentials)
}

func TestLoginDeactivatedAccount(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("a@x.com", "password123", models.RoleUser, models.TierFree)
	require.NoError(t, env.DB.Model(user).Update("active", false).Error)

	_, _, err := env.login("a@x.com", "password123")
	requireHTTPError(t, err, http.StatusForbidden, transport.ReasonAccountDeactivated)
}

func TestLoginConcurrentSessionGuard(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("a@x.com", "password123", models.RoleUser, models.TierFree)

	_, _, err := env.login("a@x.com", "password123")
	require.NoError(t, err)

	// Second login inside the activity window is refused, not evicted.
	_, _, err = env.login("a@x.com", "password123")
	requireHTTPError(t, err, http.StatusConflict, transport.ReasonSessionActive)
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("a@x.com", "password123", models.RoleUser, models.TierFree)

	tokenA, _, err := env.login("a@x.com", "password123")
	require.NoError(t, err)

	// Device B logs in five minutes later.
	env.ageSession(user.ID, 5*time.Minute)
	tokenB, _, err := env.login("a@x.com", "password123")
	require.NoError(t, err)

	// The old token is now rejected with the distinct superseded reason.
	_, cA := env.doAuthedRequest(http.MethodGet, "/api/v1/auth/me", tokenA, nil)
	err = env.Validator.RequireLogin(env.A.Me)(cA)
	requireHTTPError(t, err, http.StatusUnauthorized, transport.ReasonSessionSuperseded)

	// The new token keeps working.
	recB, cB := env.doAuthedRequest(http.MethodGet, "/api/v1/auth/me", tokenB, nil)
	require.NoError(t, env.Validator.RequireLogin(env.A.Me)(cB))
	require.Equal(t, http.StatusOK, recB.Code)
}

func TestSignupLoginMeRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	_, cReg := env.doJSONRequest(http.MethodPost, "/api/v1/register", map[string]string{
		"email":    "a@x.com",
		"name":     "Alice",
		"phone":    "+15550100",
		"password": "password123",
	})
	require.NoError(t, env.A.Register(cReg))

	token, _, err := env.login("a@x.com", "password123")
	require.NoError(t, err)

	rec, c := env.doAuthedRequest(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.NoError(t, env.Validator.RequireLogin(env.A.Me)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var me transport.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	require.Equal(t, "a@x.com", me.Email)
	require.Equal(t, "Alice", me.Name)
	require.Equal(t, "+15550100", me.Phone)
	require.Equal(t, models.TierFree, me.Tier)
	require.NotContains(t, rec.Body.String(), "password")
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("a@x.com", "password123", models.RoleUser, models.TierFree)

	token, _, err := env.login("a@x.com", "password123")
	require.NoError(t, err)

	rec, c := env.doAuthedRequest(http.MethodPost, "/api/v1/logout", token, nil)
	require.NoError(t, env.Validator.RequireLogin(env.A.Logout)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.User
	require.NoError(t, env.DB.First(&stored, user.ID).Error)
	require.Empty(t, stored.SessionID)
	require.Nil(t, stored.LastActiveAt)

	// The token is dead after logout.
	_, cAgain := env.doAuthedRequest(http.MethodGet, "/api/v1/auth/me", token, nil)
	err = env.Validator.RequireLogin(env.A.Me)(cAgain)
	requireHTTPError(t, err, http.StatusUnauthorized, transport.ReasonSessionSuperseded)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	env := newTestEnv(t)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/forgot-password", map[string]string{
		"email": "nobody@x.com",
	})
	requireHTTPError(t, env.A.ForgotPassword(c), http.StatusNotFound, "")
	require.Empty(t, env.Mailer.sent)
}

func TestForgotPasswordIssuesToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("a@x.com", "password123", models.RoleUser, models.TierFree)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/forgot-password", map[string]string{
		"email": "a@x.com",
	})
	require.NoError(t, env.A.ForgotPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.User
	require.NoError(t, env.DB.First(&stored, user.ID).Error)
	require.NotEmpty(t, stored.ResetTokenHash)
	require.NotNil(t, stored.ResetTokenExpiresAt)
	require.True(t, stored.ResetTokenExpiresAt.After(time.Now()))

	// Only the digest is stored; the raw token travels by mail.
	require.Len(t, env.Mailer.sent, 1)
	require.NotContains(t, env.Mailer.sent[0].Body, stored.ResetTokenHash)
}

func TestForgotPasswordStillSucceedsWhenMailFails(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("a@x.com", "password123", models.RoleUser, models.TierFree)
	env.Mailer.err = errSMTPDown

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/forgot-password", map[string]string{
		"email": "a@x.com",
	})
	require.NoError(t, env.A.ForgotPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestResetPasswordSingleUse(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("a@x.com", "oldpassword1", models.RoleUser, models.TierFree)

	const raw = "known-reset-token"
	expires := time.Now().UTC().Add(time.Hour)
	require.NoError(t, env.DB.Model(user).Updates(map[string]any{
		"reset_token_hash":       hash.Sha256Hex(raw),
		"reset_token_expires_at": expires,
	}).Error)

	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/reset-password", map[string]string{
		"token":    raw,
		"password": "newpassword1",
	})
	require.NoError(t, env.A.ResetPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// New password works, old one does not.
	var stored models.User
	require.NoError(t, env.DB.First(&stored, user.ID).Error)
	require.True(t, hash.CheckPassword(stored.PasswordHash, "newpassword1"))
	require.False(t, hash.CheckPassword(stored.PasswordHash, "oldpassword1"))
	require.Empty(t, stored.ResetTokenHash)
	require.Nil(t, stored.ResetTokenExpiresAt)

	// Replaying the same token fails exactly like an unknown one.
	_, cReplay := env.doJSONRequest(http.MethodPost, "/api/v1/reset-password", map[string]string{
		"token":    raw,
		"password": "anotherpass1",
	})
	requireHTTPError(t, env.A.ResetPassword(cReplay), http.StatusBadRequest, transport.ReasonInvalidOrExpiredToken)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("a@x.com", "oldpassword1", models.RoleUser, models.TierFree)

	const raw = "expired-token"
	expires := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, env.DB.Model(user).Updates(map[string]any{
		"reset_token_hash":       hash.Sha256Hex(raw),
		"reset_token_expires_at": expires,
	}).Error)

	_, c := env.doJSONRequest(http.MethodPost, "/api/v1/reset-password", map[string]string{
		"token":    raw,
		"password": "newpassword1",
	})
	requireHTTPError(t, env.A.ResetPassword(c), http.StatusBadRequest, transport.ReasonInvalidOrExpiredToken)
}

func TestHeartbeat(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("a@x.com", "password123", models.RoleUser, models.TierFree)

	token, _, err := env.login("a@x.com", "password123")
	require.NoError(t, err)

	rec, c := env.doAuthedRequest(http.MethodGet, "/api/v1/auth/heartbeat", token, nil)
	require.NoError(t, env.Validator.RequireLogin(env.A.Heartbeat)(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
}
