package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	mwauth "github.com/lessonhub/platform/internal/middleware/auth"
	"github.com/lessonhub/platform/internal/models"
	"github.com/lessonhub/platform/internal/mykafka"
	"github.com/lessonhub/platform/internal/transport"
)

// Flat plan pricing in paise.
const (
	priceGoldPaise    = 49900
	pricePremiumPaise = 99900

	orderCurrency = "INR"
)

type PaymentHandler struct {
	DB       *gorm.DB
	Gateway  Gateway
	Producer EventPublisher
}

func planAmount(plan string) int64 {
	if plan == models.TierPremium {
		return pricePremiumPaise
	}
	return priceGoldPaise
}

func (h *PaymentHandler) CreateOrder(c echo.Context) error {
	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user := mwauth.CurrentUser(c)
	receipt := "rcpt_" + uuid.NewString()

	order, err := h.Gateway.CreateOrder(c.Request().Context(), planAmount(req.Plan), orderCurrency, receipt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "payment gateway error")
	}

	record := models.PaymentOrder{
		OrderID:     order.ID,
		UserID:      user.ID,
		Plan:        req.Plan,
		Categories:  strings.Join(req.Categories, ","),
		AmountPaise: order.Amount,
		Currency:    order.Currency,
		Status:      models.OrderStatusCreated,
		Receipt:     receipt,
	}
	if err := h.DB.Create(&record).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusCreated, record)
}

// VerifyPayment checks the gateway callback signature before any upgrade is
// applied. A bad signature is fatal to the operation: the order is marked
// failed and the account is left untouched.
func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	var req transport.VerifyPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user := mwauth.CurrentUser(c)

	var order models.PaymentOrder
	err := h.DB.Where("order_id = ? AND user_id = ?", req.OrderID, user.ID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	if order.Status == models.OrderStatusPaid {
		return echo.NewHTTPError(http.StatusConflict, "order already captured")
	}

	if !h.Gateway.VerifySignature(req.OrderID, req.PaymentID, req.Signature) {
		h.DB.Model(&order).Updates(map[string]any{"status": models.OrderStatusFailed})
		return echo.NewHTTPError(http.StatusBadRequest, "signature verification failed")
	}

	if err := h.DB.Model(&order).Updates(map[string]any{
		"status":     models.OrderStatusPaid,
		"payment_id": req.PaymentID,
	}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	updates := map[string]any{"tier": order.Plan}
	if order.Plan == models.TierGold {
		merged := mergeCategories(user.GoldCategoryList(), strings.Split(order.Categories, ","))
		updates["gold_categories"] = strings.Join(merged, ",")
	}
	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	publish(c, h.Producer, mykafka.TopicPaymentEvents, fmt.Sprint(user.ID), map[string]any{
		"type":       "payment_captured",
		"user_id":    user.ID,
		"order_id":   order.OrderID,
		"payment_id": req.PaymentID,
		"plan":       order.Plan,
	})

	var updated models.User
	if err := h.DB.First(&updated, user.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"message": "payment captured",
		"user":    transport.NewUserResponse(&updated),
	})
}

func mergeCategories(existing, extra []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range append(existing, extra...) {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}
