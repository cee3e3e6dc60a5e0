package cleanup

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lessonhub/platform/internal/logging"
	"github.com/lessonhub/platform/internal/models"
)

// Sweeper deletes closed support tickets (and their replies) once they age
// past the retention window. Best effort: a failed sweep is logged and
// retried on the next tick.
type Sweeper struct {
	DB        *gorm.DB
	Interval  time.Duration
	Retention time.Duration
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context) {
	l := logging.FromContext(ctx).With("svc", "cleanup")
	cutoff := time.Now().UTC().Add(-s.Retention)

	var stale []models.SupportTicket
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND closed_at < ?", models.TicketStatusClosed, cutoff).
		Find(&stale).Error; err != nil {
		l.Error("ticket sweep query failed", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	ids := make([]uint, len(stale))
	for i, t := range stale {
		ids[i] = t.ID
	}

	if err := s.DB.WithContext(ctx).Where("ticket_id IN ?", ids).Delete(&models.TicketReply{}).Error; err != nil {
		l.Error("ticket reply sweep failed", "error", err)
		return
	}
	if err := s.DB.WithContext(ctx).Delete(&models.SupportTicket{}, ids).Error; err != nil {
		l.Error("ticket sweep failed", "error", err)
		return
	}

	l.Info("swept closed tickets", "count", len(ids))
}
