package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/student-auth/internal/api/http/handlers"
	"github.com/spec-kit/student-auth/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Students       *handlers.StudentsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/status", cfg.Auth.Status)
	authGroup.Get("/health", cfg.Auth.Health)
	authGroup.Get("/validate", cfg.Auth.Validate)
	authGroup.Get("/profile", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Auth.Profile)

	students := api.Group("/students", cfg.AuthMiddleware.Handle)
	students.Get("/", auth.RequirePermission(auth.OpListStudents), cfg.Students.List)
	students.Get("/search", auth.RequirePermission(auth.OpSearchStudents), cfg.Students.Search)
	students.Get("/branch/:branch", auth.RequirePermission(auth.OpSearchStudents), cfg.Students.ByBranch)
	students.Get("/course/:course", auth.RequirePermission(auth.OpSearchStudents), cfg.Students.ByCourse)
	students.Get("/rollno/:rollNo", auth.RequirePermission(auth.OpReadStudent), cfg.Students.GetByRollNo)
	students.Get("/:id", auth.RequirePermission(auth.OpReadStudent), cfg.Students.Get)
	students.Post("/", auth.RequirePermission(auth.OpCreateStudent), cfg.Students.Create)
	students.Put("/:id", auth.RequirePermission(auth.OpUpdateStudent), cfg.Students.Update)
	students.Patch("/:id", auth.RequirePermission(auth.OpUpdateStudent), cfg.Students.Patch)
	students.Delete("/:id", auth.RequirePermission(auth.OpDeleteStudent), cfg.Students.Delete)
}
