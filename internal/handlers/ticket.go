package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	mwauth "github.com/lessonhub/platform/internal/middleware/auth"
	"github.com/lessonhub/platform/internal/models"
	"github.com/lessonhub/platform/internal/mykafka"
	"github.com/lessonhub/platform/internal/transport"
)

type TicketHandler struct {
	DB       *gorm.DB
	Producer EventPublisher
}

func (h *TicketHandler) CreateTicket(c echo.Context) error {
	var req transport.TicketRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user := mwauth.CurrentUser(c)
	ticket := models.SupportTicket{
		UserID:  user.ID,
		Subject: req.Subject,
		Body:    req.Body,
		Status:  models.TicketStatusOpen,
	}
	if err := h.DB.Create(&ticket).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	publish(c, h.Producer, mykafka.TopicTicketEvents, fmt.Sprint(ticket.ID), map[string]any{
		"type":      "ticket_opened",
		"ticket_id": ticket.ID,
		"user_id":   user.ID,
	})

	return c.JSON(http.StatusCreated, ticket)
}

func (h *TicketHandler) GetTickets(c echo.Context) error {
	user := mwauth.CurrentUser(c)

	var items []models.SupportTicket
	if err := h.DB.Where("user_id = ?", user.ID).Order("id DESC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *TicketHandler) GetAllTickets(c echo.Context) error {
	q := h.DB.Model(&models.SupportTicket{})
	if status := c.QueryParam("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var items []models.SupportTicket
	if err := q.Order("id DESC").Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *TicketHandler) loadTicket(c echo.Context) (*models.SupportTicket, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	var ticket models.SupportTicket
	if err := h.DB.First(&ticket, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, echo.NewHTTPError(http.StatusNotFound, "ticket not found")
		}
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	user := mwauth.CurrentUser(c)
	if ticket.UserID != user.ID && user.Role != models.RoleAdmin {
		return nil, echo.NewHTTPError(http.StatusForbidden, transport.ReasonForbidden)
	}
	return &ticket, nil
}

func (h *TicketHandler) GetTicket(c echo.Context) error {
	ticket, err := h.loadTicket(c)
	if err != nil {
		return err
	}

	var replies []models.TicketReply
	if err := h.DB.Where("ticket_id = ?", ticket.ID).Order("id ASC").Find(&replies).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"ticket":  ticket,
		"replies": replies,
	})
}

func (h *TicketHandler) Reply(c echo.Context) error {
	ticket, err := h.loadTicket(c)
	if err != nil {
		return err
	}

	if ticket.Status == models.TicketStatusClosed {
		return echo.NewHTTPError(http.StatusConflict, "ticket is closed")
	}

	var req transport.TicketReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user := mwauth.CurrentUser(c)
	reply := models.TicketReply{
		TicketID:   ticket.ID,
		UserID:     user.ID,
		AdminReply: user.Role == models.RoleAdmin,
		Body:       req.Body,
	}
	if err := h.DB.Create(&reply).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusCreated, reply)
}

func (h *TicketHandler) CloseTicket(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	var ticket models.SupportTicket
	if err := h.DB.First(&ticket, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	now := time.Now().UTC()
	if err := h.DB.Model(&ticket).Updates(map[string]any{
		"status":    models.TicketStatusClosed,
		"closed_at": now,
	}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	publish(c, h.Producer, mykafka.TopicTicketEvents, fmt.Sprint(ticket.ID), map[string]any{
		"type":      "ticket_closed",
		"ticket_id": ticket.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "ticket closed"})
}
