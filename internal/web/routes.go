package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/spyhole/internal/database"
	"github.com/kozaktomas/spyhole/internal/web/handlers"
	"github.com/kozaktomas/spyhole/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	maxUpload := s.config.Server.MaxUploadSize

	probeHandler := handlers.NewProbeHandler(s.monitor, maxUpload, s.logger.Named("probe"))
	eventsHandler := handlers.NewEventsHandler(s.monitor)
	authHandler := handlers.NewAuthHandler(s.accounts, s.monitor, s.sessionManager, maxUpload, s.logger.Named("auth"))

	// Capture device endpoint
	s.router.Post("/upload", probeHandler.Upload)
	s.router.Get("/images/{filename}", eventsHandler.Image)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck(s.monitor))

		r.Post("/probes", probeHandler.Upload)
		r.Get("/log", eventsHandler.List)

		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/auth/status", authHandler.Status)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(s.sessionManager))

			r.Get("/events", eventsHandler.List)
			r.Get("/gallery", eventsHandler.Gallery)

			r.With(middleware.RequireRole(database.RoleAdmin)).Get("/accounts", authHandler.ListAccounts)
		})
	})
}
