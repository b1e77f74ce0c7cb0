package main

import (
	"log"
	"net/http"

	httphandlers "authgate/internal/interfaces/http"
	"authgate/internal/shared/config"
	"authgate/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", httphandlers.HandleHealth)

	// Email/password auth
	mux.HandleFunc("POST /api/auth/register", deps.AuthHandler.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", deps.AuthHandler.HandleLogin)
	mux.HandleFunc("POST /api/auth/logout", deps.AuthHandler.HandleLogout)
	mux.HandleFunc("POST /api/auth/forgot-password", deps.AuthHandler.HandleForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", deps.AuthHandler.HandleResetPassword)

	// Federated auth
	mux.HandleFunc("GET /api/auth/{provider}", deps.ProviderHandler.HandleStart)
	mux.HandleFunc("GET /api/auth/{provider}/signup", deps.ProviderHandler.HandleSignupStart)
	mux.HandleFunc("GET /api/auth/{provider}/callback", deps.ProviderHandler.HandleCallback)

	// Protected routes
	authMiddleware := middleware.Auth(deps.Sessions)

	mux.Handle("GET /api/auth/me", authMiddleware(http.HandlerFunc(deps.UserHandler.HandleMe)))

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))

	if cfg.Telemetry.Enabled {
		handler = middleware.Telemetry(middleware.Tracing(handler))
	}

	// Apply security middleware when TLS is enabled
	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
