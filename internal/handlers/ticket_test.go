package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lessonhub/platform/internal/models"
)

func TestTicketLifecycle(t *testing.T) {
	env := newTestEnv(t)
	h := &TicketHandler{DB: env.DB, Producer: nopProducer{}}

	env.createUser("user@x.com", "password123", models.RoleUser, models.TierFree)
	userToken, _, err := env.login("user@x.com", "password123")
	require.NoError(t, err)

	env.createUser("admin@x.com", "password123", models.RoleAdmin, models.TierFree)
	adminToken, _, err := env.login("admin@x.com", "password123")
	require.NoError(t, err)

	// User opens a ticket.
	rec, c := env.doAuthedRequest(http.MethodPost, "/api/v1/tickets", userToken, map[string]string{
		"subject": "Video stuck",
		"body":    "Lesson 4 buffers forever.",
	})
	require.NoError(t, env.Validator.RequireLogin(h.CreateTicket)(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var ticket models.SupportTicket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ticket))
	require.Equal(t, models.TicketStatusOpen, ticket.Status)

	// Admin replies.
	recReply, cReply := env.doAuthedRequest(http.MethodPost, "/api/v1/tickets/:id/replies", adminToken, map[string]string{
		"body": "Try again, CDN issue fixed.",
	})
	cReply.SetParamNames("id")
	cReply.SetParamValues(itoa(ticket.ID))
	require.NoError(t, env.Validator.RequireLogin(h.Reply)(cReply))
	require.Equal(t, http.StatusCreated, recReply.Code)

	var reply models.TicketReply
	require.NoError(t, json.Unmarshal(recReply.Body.Bytes(), &reply))
	require.True(t, reply.AdminReply)

	// Owner sees the thread.
	recGet, cGet := env.doAuthedRequest(http.MethodGet, "/api/v1/tickets/:id", userToken, nil)
	cGet.SetParamNames("id")
	cGet.SetParamValues(itoa(ticket.ID))
	require.NoError(t, env.Validator.RequireLogin(h.GetTicket)(cGet))
	require.Contains(t, recGet.Body.String(), "CDN issue fixed")

	// Admin closes it; replies on a closed ticket are refused.
	recClose, cClose := env.doAuthedRequest(http.MethodPatch, "/api/v1/admin/tickets/:id/close", adminToken, nil)
	cClose.SetParamNames("id")
	cClose.SetParamValues(itoa(ticket.ID))
	require.NoError(t, env.Validator.RequireLogin(h.CloseTicket)(cClose))
	require.Equal(t, http.StatusOK, recClose.Code)

	_, cLate := env.doAuthedRequest(http.MethodPost, "/api/v1/tickets/:id/replies", userToken, map[string]string{
		"body": "One more thing...",
	})
	cLate.SetParamNames("id")
	cLate.SetParamValues(itoa(ticket.ID))
	err = env.Validator.RequireLogin(h.Reply)(cLate)
	requireHTTPError(t, err, http.StatusConflict, "")
}

func TestTicketOwnershipIsEnforced(t *testing.T) {
	env := newTestEnv(t)
	h := &TicketHandler{DB: env.DB, Producer: nopProducer{}}

	owner := env.createUser("owner@x.com", "password123", models.RoleUser, models.TierFree)
	ticket := models.SupportTicket{
		UserID:  owner.ID,
		Subject: "Billing question",
		Body:    "Charged twice?",
		Status:  models.TicketStatusOpen,
	}
	require.NoError(t, env.DB.Create(&ticket).Error)

	env.createUser("other@x.com", "password123", models.RoleUser, models.TierFree)
	otherToken, _, err := env.login("other@x.com", "password123")
	require.NoError(t, err)

	_, c := env.doAuthedRequest(http.MethodGet, "/api/v1/tickets/:id", otherToken, nil)
	c.SetParamNames("id")
	c.SetParamValues(itoa(ticket.ID))
	err = env.Validator.RequireLogin(h.GetTicket)(c)
	requireHTTPError(t, err, http.StatusForbidden, "")
}

func TestGetTicketsReturnsOwnOnly(t *testing.T) {
	env := newTestEnv(t)
	h := &TicketHandler{DB: env.DB, Producer: nopProducer{}}

	a := env.createUser("a@x.com", "password123", models.RoleUser, models.TierFree)
	b := env.createUser("b@x.com", "password123", models.RoleUser, models.TierFree)

	require.NoError(t, env.DB.Create(&models.SupportTicket{UserID: a.ID, Subject: "s1", Body: "b", Status: models.TicketStatusOpen}).Error)
	require.NoError(t, env.DB.Create(&models.SupportTicket{UserID: b.ID, Subject: "s2", Body: "b", Status: models.TicketStatusOpen}).Error)

	tokenA, _, err := env.login("a@x.com", "password123")
	require.NoError(t, err)

	rec, c := env.doAuthedRequest(http.MethodGet, "/api/v1/tickets", tokenA, nil)
	require.NoError(t, env.Validator.RequireLogin(h.GetTickets)(c))

	var items []models.SupportTicket
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.Equal(t, "s1", items[0].Subject)
}
