package models

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	TierFree    = "free"
	TierGold    = "gold"
	TierPremium = "premium"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"unique;not null"          json:"email"`
	Name         string `gorm:"not null"                 json:"name"`
	Phone        string `json:"phone,omitempty"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:user"    json:"role"`
	Tier         string `gorm:"not null;default:free"    json:"tier"`

	// Comma-joined category names the account is entitled to on the gold tier.
	GoldCategories string `json:"-"`

	SessionID    string     `json:"-"`
	LastActiveAt *time.Time `json:"-"`
	Active       bool       `gorm:"not null;default:true" json:"active"`

	ResetTokenHash      string     `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (u *User) GoldCategoryList() []string {
	if u.GoldCategories == "" {
		return nil
	}
	parts := strings.Split(u.GoldCategories, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (u *User) SetGoldCategories(names []string) {
	u.GoldCategories = strings.Join(names, ",")
}

type Category struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"unique;not null"          json:"name"`
	Description string `json:"description"`
}

type Lesson struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Title           string    `gorm:"not null"                 json:"title"`
	Description     string    `json:"description"`
	Category        string    `gorm:"index;not null"           json:"category"`
	StreamURL       string    `gorm:"not null"                 json:"-"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	DurationMinutes uint      `json:"duration_minutes"`
	Free            bool      `gorm:"not null;default:false"   json:"free"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"-"`
}

const (
	OrderStatusCreated = "created"
	OrderStatusPaid    = "paid"
	OrderStatusFailed  = "failed"
)

type PaymentOrder struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     string    `gorm:"unique;not null"          json:"order_id"`
	UserID      uint      `gorm:"index;not null"           json:"user_id"`
	Plan        string    `gorm:"not null"                 json:"plan"`
	Categories  string    `json:"categories,omitempty"`
	AmountPaise int64     `gorm:"not null"                 json:"amount_paise"`
	Currency    string    `gorm:"not null"                 json:"currency"`
	Status      string    `gorm:"not null;default:created" json:"status"`
	PaymentID   string    `json:"payment_id,omitempty"`
	Receipt     string    `json:"receipt"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`
}

const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

type SupportTicket struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint       `gorm:"index;not null"           json:"user_id"`
	Subject   string     `gorm:"not null"                 json:"subject"`
	Body      string     `gorm:"not null"                 json:"body"`
	Status    string     `gorm:"not null;default:open"    json:"status"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"-"`
}

type TicketReply struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	TicketID   uint      `gorm:"index;not null"           json:"ticket_id"`
	UserID     uint      `gorm:"not null"                 json:"user_id"`
	AdminReply bool      `gorm:"not null;default:false"   json:"admin_reply"`
	Body       string    `gorm:"not null"                 json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// All lists every table the server migrates at startup.
func All() []any {
	return []any{
		&User{},
		&Category{},
		&Lesson{},
		&PaymentOrder{},
		&SupportTicket{},
		&TicketReply{},
	}
}
