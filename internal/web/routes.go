package web

import (
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/kozaktomas/bundy-kiosk/internal/web/handlers"
	"github.com/kozaktomas/bundy-kiosk/internal/web/middleware"
	"github.com/kozaktomas/bundy-kiosk/internal/web/static"
)

func (s *Server) setupRoutes() {
	configHandler := handlers.NewConfigHandler(s.config, s.version)
	kioskHandler := handlers.NewKioskHandler(s.session)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Long-lived stream, outside the request timeout.
		r.Get("/kiosk/events", kioskHandler.Events)

		r.Group(func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(s.config.Timeouts.Request))

			r.Get("/config", configHandler.Get)

			r.Get("/kiosk/status", kioskHandler.Status)
			r.Get("/kiosk/frame", kioskHandler.Frame)
			r.Get("/kiosk/frozen", kioskHandler.Frozen)
			r.Post("/kiosk/frames", kioskHandler.PushFrame)
			r.Post("/kiosk/capture", kioskHandler.Capture)
			r.Post("/kiosk/retake", kioskHandler.Retake)
			r.Put("/kiosk/mode", kioskHandler.SetMode)
			r.Put("/kiosk/auto-capture", kioskHandler.SetAutoCapture)
		})
	})

	// Kiosk page
	s.router.With(middleware.SecurityHeaders()).Handle("/*", static.Handler())
}
