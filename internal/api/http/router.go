package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campusvoice/complaint-service/internal/api/http/handlers"
	"github.com/campusvoice/complaint-service/internal/auth"
	"github.com/campusvoice/complaint-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Complaints     *handlers.ComplaintsHandler
	Admin          *handlers.AdminHandler
	Chatbot        *handlers.ChatbotHandler
	AuthMiddleware *auth.AuthMiddleware
	MediaDir       string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.MediaDir != "" {
		app.Static("/media", cfg.MediaDir)
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	authed := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	authed.Post("/logout", cfg.Auth.Logout)
	authed.Get("/me", cfg.Auth.Me)
	authed.Post("/password/change", cfg.Auth.ChangePassword)

	app.Get("/track/:code", cfg.Complaints.Track)

	student := auth.RequireRole(domain.RoleStudent)
	app.Post("/complaints", cfg.AuthMiddleware.Handle, student, cfg.Complaints.Submit)

	studentGroup := app.Group("/student", cfg.AuthMiddleware.Handle, student)
	studentGroup.Get("/complaints", cfg.Complaints.ListOwn)
	studentGroup.Get("/complaints/:id", cfg.Complaints.GetOwn)

	chatbot := app.Group("/chatbot", cfg.AuthMiddleware.Handle, student)
	chatbot.Post("/sessions", cfg.Chatbot.Start)
	chatbot.Get("/sessions", cfg.Chatbot.List)
	chatbot.Post("/sessions/:id/touch", cfg.Chatbot.Touch)
	chatbot.Post("/sessions/:id/end", cfg.Chatbot.End)

	general := app.Group("/general", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleGeneralManager))
	general.Get("/complaints", cfg.Complaints.ListAll)
	general.Get("/complaints/:id", cfg.Complaints.GetManaged)
	general.Post("/complaints/:id/assign", cfg.Complaints.Assign)
	general.Get("/responses", cfg.Complaints.ListResponses)
	general.Post("/responses/:id/visibility", cfg.Complaints.SetVisibility)

	department := app.Group("/department", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleDepartmentManager))
	department.Get("/complaints", cfg.Complaints.ListDepartment)
	department.Get("/complaints/:id", cfg.Complaints.GetManaged)
	department.Post("/complaints/:id/responses", cfg.Complaints.Respond)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleGeneralManager))
	admin.Post("/departments", cfg.Admin.CreateDepartment)
	admin.Get("/departments", cfg.Admin.ListDepartments)
	admin.Get("/departments/:id", cfg.Admin.GetDepartment)
	admin.Patch("/departments/:id", cfg.Admin.UpdateDepartment)
	admin.Delete("/departments/:id", cfg.Admin.DeleteDepartment)
	admin.Post("/users", cfg.Admin.CreateUser)
	admin.Get("/users", cfg.Admin.ListUsers)
	admin.Get("/users/:id", cfg.Admin.GetUser)
	admin.Patch("/users/:id", cfg.Admin.UpdateUser)
	admin.Delete("/users/:id", cfg.Admin.DeleteUser)
}
