package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/tmreyes/storegate/internal/auth"
	"github.com/tmreyes/storegate/internal/handlers"
	"github.com/tmreyes/storegate/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	resolver *auth.SessionResolver,
	csrfGuard *auth.CSRFGuard,
	logger *slog.Logger,
) {
	// Public routes - no authentication required
	router.Group(func(r chi.Router) {
		r.Use(middleware.APIRateLimit())

		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/refresh", authHandler.RefreshToken)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(resolver))

		r.Get("/auth/me", authHandler.Me)
		r.Get("/auth/csrf", authHandler.CSRFToken)

		// Logout changes client state (cookies, CSRF entry) and therefore
		// passes through the CSRF check like any other state change.
		r.Group(func(r chi.Router) {
			r.Use(middleware.CSRFProtection(csrfGuard, logger))
			r.Post("/auth/logout", authHandler.Logout)
		})

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin())
			r.Use(middleware.CSRFProtection(csrfGuard, logger))
			r.Post("/admin/lockouts/clear", authHandler.ClearLockout)
		})
	})
}
