package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lessonhub/platform/internal/logging"
	"github.com/lessonhub/platform/internal/models"
	"github.com/lessonhub/platform/internal/payment"
)

// EventPublisher is satisfied by mykafka.Producer. Event delivery is never
// allowed to fail the originating request.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

// Mailer is satisfied by mailer.SMTP.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Gateway is satisfied by payment.Client.
type Gateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (*payment.Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// LessonIndexer is satisfied by search.Service. A nil indexer disables
// catalog indexing without disabling the catalog.
type LessonIndexer interface {
	IndexLesson(ctx context.Context, lesson models.Lesson) error
	DeleteLesson(ctx context.Context, id uint) error
}

func publish(c echo.Context, p EventPublisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Error("event publish failed", "topic", topic, "error", err)
	}
}
