package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mission-service/internal/api/http/handlers"
	"github.com/spec-kit/mission-service/internal/auth"
	"github.com/spec-kit/mission-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Users       *handlers.UsersHandler
	Departments *handlers.DepartmentsHandler
	Gate        *auth.Gate
}

// RegisterRoutes wires HTTP routes. Every /api route except login runs
// behind the authentication gate, then its authorization policy.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api")
	api.Post("/auth/login", cfg.Auth.Login)

	protected := api.Group("", cfg.Gate.Handle)

	protected.Post("/auth/logout", cfg.Auth.Logout)
	protected.Get("/auth/me", cfg.Auth.Me)
	protected.Put("/auth/password", cfg.Auth.ChangePassword)

	users := protected.Group("/users")
	users.Get("/", auth.RequireRoles(domain.RoleAdmin, domain.RoleDirector, domain.RoleHR), cfg.Users.List)
	users.Post("/", auth.RequireRoles(domain.RoleAdmin, domain.RoleHR), cfg.Users.Create)
	users.Get("/:id", auth.RequireSelfOrRoles("id", domain.RoleAdmin, domain.RoleDirector, domain.RoleHR), cfg.Users.Get)
	users.Put("/:id", auth.RequireSelfOrRoles("id", domain.RoleAdmin, domain.RoleHR), cfg.Users.Update)
	users.Delete("/:id", auth.RequireRoles(domain.RoleAdmin), cfg.Users.Delete)

	departments := protected.Group("/departments")
	departments.Get("/", auth.RequireRoles(), cfg.Departments.List)
	departments.Get("/:id", auth.RequireRoles(), cfg.Departments.Get)
	departments.Post("/", auth.RequireRoles(domain.RoleAdmin), cfg.Departments.Create)
	departments.Put("/:id", auth.RequireRoles(domain.RoleAdmin), cfg.Departments.Update)
	departments.Delete("/:id", auth.RequireRoles(domain.RoleAdmin), cfg.Departments.Delete)
	departments.Put("/:id/head", auth.RequireRoles(domain.RoleAdmin, domain.RoleDirector), cfg.Departments.AssignHead)
}
