package transport

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/lessonhub/platform/internal/models"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
	)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
	)
}

type LessonRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	StreamURL       string `json:"stream_url"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationMinutes uint   `json:"duration_minutes"`
	Free            bool   `json:"free"`
}

func (r LessonRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Category, validation.Required),
		validation.Field(&r.StreamURL, validation.Required, is.URL),
	)
}

type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r CategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 120)),
	)
}

type CreateOrderRequest struct {
	Plan       string   `json:"plan"`
	Categories []string `json:"categories"`
}

func (r CreateOrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Plan, validation.Required, validation.In(models.TierGold, models.TierPremium)),
		validation.Field(&r.Categories, validation.By(func(v any) error {
			if r.Plan == models.TierGold && len(r.Categories) == 0 {
				return errors.New("cannot be blank for the gold plan")
			}
			return nil
		})),
	)
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

func (r VerifyPaymentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrderID, validation.Required),
		validation.Field(&r.PaymentID, validation.Required),
		validation.Field(&r.Signature, validation.Required),
	)
}

type TicketRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (r TicketRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Subject, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Body, validation.Required),
	)
}

type TicketReplyRequest struct {
	Body string `json:"body"`
}

func (r TicketReplyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Body, validation.Required),
	)
}

type UpdateUserRequest struct {
	Tier           *string   `json:"tier"`
	GoldCategories *[]string `json:"gold_categories"`
	Active         *bool     `json:"active"`
	Role           *string   `json:"role"`
}

func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Tier, validation.By(func(v any) error {
			if r.Tier == nil {
				return nil
			}
			return validation.In(models.TierFree, models.TierGold, models.TierPremium).Validate(*r.Tier)
		})),
		validation.Field(&r.Role, validation.By(func(v any) error {
			if r.Role == nil {
				return nil
			}
			return validation.In(models.RoleUser, models.RoleAdmin).Validate(*r.Role)
		})),
	)
}

// UserResponse is the sanitized projection returned to clients: credential
// and recovery fields never leave the server.
type UserResponse struct {
	ID             uint     `json:"id"`
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	Phone          string   `json:"phone,omitempty"`
	Role           string   `json:"role"`
	Tier           string   `json:"tier"`
	GoldCategories []string `json:"gold_categories,omitempty"`
	Active         bool     `json:"active"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:             u.ID,
		Email:          u.Email,
		Name:           u.Name,
		Phone:          u.Phone,
		Role:           u.Role,
		Tier:           u.Tier,
		GoldCategories: u.GoldCategoryList(),
		Active:         u.Active,
	}
}
