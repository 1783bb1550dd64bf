package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/clinic-crm/internal/api/http/handlers"
	"github.com/spec-kit/clinic-crm/internal/auth"
	"github.com/spec-kit/clinic-crm/internal/domain"
)

// Role policy per endpoint. Superadmin is never granted implicitly by the
// gate, so every set that should admit it lists it.
var (
	patientReadRoles = []domain.Role{
		domain.RoleSuperadmin, domain.RoleAdmin, domain.RoleDoctor, domain.RoleStaff,
	}
	patientSelfRoles = []domain.Role{
		domain.RoleSuperadmin, domain.RoleAdmin, domain.RoleDoctor, domain.RoleStaff, domain.RolePatient,
	}
	patientDeleteRoles = []domain.Role{
		domain.RoleSuperadmin,
	}
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Patients       *handlers.PatientsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
		app.Get("/health/metrics", cfg.Health.Metrics)
	}

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/verify-email", cfg.Auth.VerifyEmail)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Get("/me", cfg.Auth.Me)
	authProtected.Post("/logout", cfg.Auth.Logout)
	authProtected.Post("/password/change", cfg.Auth.ChangePassword)

	patients := api.Group("/patients", cfg.AuthMiddleware.Handle)
	patients.Get("/", auth.RequireRole(patientReadRoles...), cfg.Patients.List)
	patients.Get("/:id", auth.RequireRole(patientSelfRoles...), cfg.Patients.Get)
	patients.Put("/:id", auth.RequireRole(patientSelfRoles...), cfg.Patients.Update)
	patients.Delete("/:id", auth.RequireRole(patientDeleteRoles...), cfg.Patients.Delete)
}
