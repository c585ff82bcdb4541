package routes

import (
	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/handlers"
	"github.com/BradenHooton/gatehouse/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Handlers bundles the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Auth     *handlers.AuthHandler
	LoginLog *handlers.LoginLogHandler
	Health   *handlers.HealthHandler
}

// Options holds route-level policy
type Options struct {
	LoginRateLimit middleware.RateLimitConfig
	AdminToken     string
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, opts Options) {
	router.Get("/health", h.Health.Health)

	// Public login routes, throttled per client address
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(opts.LoginRateLimit))
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/login/phone", h.Auth.PhoneLogin)
	})

	// Operator routes
	router.Route("/monitor/logininfor", func(r chi.Router) {
		r.Use(auth.RequireAdminToken(opts.AdminToken))
		r.Get("/", h.LoginLog.List)
		r.Delete("/clean", h.LoginLog.Clean)
		r.Delete("/{ids}", h.LoginLog.Delete)
		r.Get("/lock/{username}", h.LoginLog.LockState)
		r.Put("/unlock/{username}", h.LoginLog.Unlock)
	})
}
