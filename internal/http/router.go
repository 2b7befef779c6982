package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"projectadmin/internal/auth"
	"projectadmin/internal/config"
	"projectadmin/internal/consent"
	"projectadmin/internal/httputil"
	"projectadmin/internal/logging"
	"projectadmin/internal/metrics"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	authMiddleware *auth.Middleware,
	consentHandler *consent.Handler,
	collector *metrics.Collector,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(collector.HTTPMiddleware)
	r.Use(middleware.Compress(5))

	// Operational endpoints
	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", collector.Handler())

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/signup", authHandler.SignupPage)
		r.Post("/signup", authHandler.Signup)
		r.Get("/login", authHandler.LoginPage)
		r.Post("/login", authHandler.Login)
		r.Get("/logout", authHandler.Logout)
		r.Get("/google-login", authHandler.GoogleLogin)
		r.Get("/google-response", authHandler.GoogleCallback)
	})

	// Cookie consent routes (public)
	r.Route("/cookies", func(r chi.Router) {
		r.Post("/setcookies", consentHandler.SetCookies)
		r.Get("/check-cookie-consent", consentHandler.CheckConsent)
	})

	// Protected routes (require a valid session)
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get(auth.AdminHomePath, authHandler.AdminHome)
	})

	// Unauthenticated visits to the root land on the login page
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, auth.LoginPath, http.StatusFound)
	})

	return r
}

// handleHealth is a simple health check endpoint
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
