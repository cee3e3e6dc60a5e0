package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lessonhub/platform/internal/hash"
	mwauth "github.com/lessonhub/platform/internal/middleware/auth"
	"github.com/lessonhub/platform/internal/models"
	"github.com/lessonhub/platform/internal/payment"
)

func InitTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	return db
}

var errSMTPDown = errors.New("smtp connection refused")

type nopProducer struct{}

func (nopProducer) PublishEvent(ctx context.Context, topic, key string, event any) error {
	return nil
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type fakeGateway struct {
	orders   int
	validSig string
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*payment.Order, error) {
	g.orders++
	return &payment.Order{
		ID:       "order_test_1",
		Amount:   amountPaise,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

func (g *fakeGateway) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == g.validSig
}

type testEnv struct {
	T         *testing.T
	E         *echo.Echo
	DB        *gorm.DB
	JWTSecret []byte
	Validator *mwauth.SessionValidator
	A         *AuthHandler
	Mailer    *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	db := InitTestDB(t)
	secret := []byte("test-jwt-secret")
	mail := &fakeMailer{}

	return &testEnv{
		T:         t,
		E:         echo.New(),
		DB:        db,
		JWTSecret: secret,
		Validator: &mwauth.SessionValidator{DB: db, JWTSecret: secret},
		A: &AuthHandler{
			DB:           db,
			JWTSecret:    secret,
			TokenTTL:     7 * 24 * time.Hour,
			ActiveWindow: 45 * time.Second,
			Producer:     nopProducer{},
			Mailer:       mail,
		},
		Mailer: mail,
	}
}

func (env *testEnv) doJSONRequest(method, path string, body any) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) doAuthedRequest(method, path, token string, body any) (*httptest.ResponseRecorder, echo.Context) {
	rec, c := env.doJSONRequest(method, path, body)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	return rec, c
}

func (env *testEnv) createUser(email, password, role, tier string) *models.User {
	pwHash, err := hash.HashPassword(password)
	require.NoError(env.T, err)

	user := &models.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: pwHash,
		Role:         role,
		Tier:         tier,
		Active:       true,
	}
	require.NoError(env.T, env.DB.Create(user).Error)
	return user
}

func (env *testEnv) login(email, password string) (string, *httptest.ResponseRecorder, error) {
	rec, c := env.doJSONRequest(http.MethodPost, "/api/v1/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err := env.A.Login(c); err != nil {
		return "", rec, err
	}

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token, rec, nil
}

// ageSession pushes the stored activity timestamp back so a new login is not
// blocked by the concurrent-session guard.
func (env *testEnv) ageSession(userID uint, by time.Duration) {
	past := time.Now().UTC().Add(-by)
	require.NoError(env.T, env.DB.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_active_at", past).Error)
}

func requireHTTPError(t *testing.T, err error, code int, reason string) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError, got %v", err)
	require.Equal(t, code, he.Code)
	if reason != "" {
		require.Equal(t, reason, he.Message)
	}
}
