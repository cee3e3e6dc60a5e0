package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/lessonhub/platform/internal/handlers"
	mwauth "github.com/lessonhub/platform/internal/middleware/auth"
)

type Deps struct {
	Validator       *mwauth.SessionValidator
	AuthHandler     *handlers.AuthHandler
	LessonHandler   *handlers.LessonHandler
	CategoryHandler *handlers.CategoryHandler
	PaymentHandler  *handlers.PaymentHandler
	TicketHandler   *handlers.TicketHandler
	UserHandler     *handlers.UserAdminHandler
	SearchHandler   *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	v1.POST("/reset-password", d.AuthHandler.ResetPassword)

	v1.GET("/categories", d.CategoryHandler.GetCategories)
	v1.GET("/lessons", d.LessonHandler.GetLessons)
	v1.GET("/lessons/:id", d.LessonHandler.GetLesson)
	v1.GET("/search", d.SearchHandler.Search)

	authed := v1.Group("", d.Validator.RequireLogin)

	authed.GET("/auth/me", d.AuthHandler.Me)
	authed.GET("/auth/heartbeat", d.AuthHandler.Heartbeat)
	authed.POST("/logout", d.AuthHandler.Logout)

	authed.GET("/lessons/:id/stream", d.LessonHandler.Stream)

	authed.POST("/payments/order", d.PaymentHandler.CreateOrder)
	authed.POST("/payments/verify", d.PaymentHandler.VerifyPayment)

	authed.POST("/tickets", d.TicketHandler.CreateTicket)
	authed.GET("/tickets", d.TicketHandler.GetTickets)
	authed.GET("/tickets/:id", d.TicketHandler.GetTicket)
	authed.POST("/tickets/:id/replies", d.TicketHandler.Reply)

	admin := v1.Group("/admin", d.Validator.RequireLogin, d.Validator.AdminOnly)

	admin.POST("/lessons", d.LessonHandler.CreateLesson)
	admin.PATCH("/lessons/:id", d.LessonHandler.PatchLesson)
	admin.DELETE("/lessons/:id", d.LessonHandler.DeleteLesson)
	admin.POST("/lessons/import", d.LessonHandler.ImportCSV)

	admin.POST("/categories", d.CategoryHandler.CreateCategory)
	admin.PATCH("/categories/:id", d.CategoryHandler.PatchCategory)
	admin.DELETE("/categories/:id", d.CategoryHandler.DeleteCategory)

	admin.GET("/users", d.UserHandler.GetUsers)
	admin.PATCH("/users/:id", d.UserHandler.PatchUser)
	admin.DELETE("/users/:id", d.UserHandler.DeleteUser)

	admin.GET("/tickets", d.TicketHandler.GetAllTickets)
	admin.PATCH("/tickets/:id/close", d.TicketHandler.CloseTicket)
}
