// Package access holds the one authorization predicate for content gating.
// Middleware, handlers, and anything else deciding whether an account can
// watch a lesson must go through CanWatch rather than re-deriving tier rules.
package access

import (
	"strings"

	"github.com/lessonhub/platform/internal/models"
)

func CanWatch(u *models.User, l *models.Lesson) bool {
	if l.Free {
		return true
	}
	if u == nil {
		return false
	}
	if u.Role == models.RoleAdmin {
		return true
	}

	switch strings.ToLower(u.Tier) {
	case models.TierPremium:
		return true
	case models.TierGold:
		for _, name := range u.GoldCategoryList() {
			if strings.EqualFold(name, l.Category) {
				return true
			}
		}
	}
	return false
}
