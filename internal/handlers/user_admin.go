package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/lessonhub/platform/internal/models"
	"github.com/lessonhub/platform/internal/transport"
	"github.com/lessonhub/platform/internal/util"
)

// UserAdminHandler covers administrative tier/category/active mutations.
// Accounts are never hard-deleted except through DeleteUser.
type UserAdminHandler struct {
	DB *gorm.DB
}

func (h *UserAdminHandler) GetUsers(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.Model(&models.User{}).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	var users []models.User
	if err := h.DB.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	out := make([]transport.UserResponse, len(users))
	for i := range users {
		out[i] = transport.NewUserResponse(&users[i])
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": out,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *UserAdminHandler) PatchUser(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var req transport.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := h.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	updates := map[string]any{}
	if req.Tier != nil {
		updates["tier"] = *req.Tier
	}
	if req.GoldCategories != nil {
		updates["gold_categories"] = strings.Join(*req.GoldCategories, ",")
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.Active != nil {
		updates["active"] = *req.Active
		// Deactivation also kills the live session so the next validated
		// request fails immediately.
		if !*req.Active {
			updates["session_id"] = ""
			updates["last_active_at"] = nil
		}
	}

	if len(updates) == 0 {
		return c.JSON(http.StatusOK, transport.NewUserResponse(&user))
	}

	if err := h.DB.Model(&user).Updates(updates).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	var updated models.User
	if err := h.DB.First(&updated, user.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, transport.NewUserResponse(&updated))
}

func (h *UserAdminHandler) DeleteUser(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	if err := h.DB.Delete(&models.User{}, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.NoContent(http.StatusNoContent)
}
