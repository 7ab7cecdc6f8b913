package web

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/kozaktomas/face-detection/internal/constants"
	"github.com/kozaktomas/face-detection/internal/web/handlers"
)

// Per-client limits on the endpoints that run detection.
const (
	registerLimit = 10
	detectLimit   = 60
)

func (s *Server) setupRoutes() {
	recognitionHandler := handlers.NewRecognitionHandler(s.config, s.service, s.files)
	usersHandler := handlers.NewUsersHandler(s.service)
	infoHandler := handlers.NewInfoHandler(s.config, s.service, s.files)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Route(constants.APIPrefix, func(r chi.Router) {
		r.Get("/health", infoHandler.Health)
		r.Get("/info", infoHandler.Info)

		r.With(httprate.LimitByIP(registerLimit, time.Minute)).Post("/register", recognitionHandler.Register)
		r.With(httprate.LimitByIP(detectLimit, time.Minute)).Post("/detect", recognitionHandler.Detect)

		r.Get("/users", usersHandler.List)
		r.Get("/users/{name}", usersHandler.Get)
		r.Delete("/users/{name}", usersHandler.Delete)
		r.Post("/users/{name}/reencode", usersHandler.Reencode)
		r.Get("/users/{name}/similar", usersHandler.Similar)

		r.Get("/uploads/{filename}", infoHandler.Upload)
	})
}
