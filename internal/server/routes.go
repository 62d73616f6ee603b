package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/health", s.health)

	r.Route("/provider", func(r chi.Router) {
		r.Get("/", s.listProviders)

		r.Route("/{providerID}", func(r chi.Router) {
			r.Post("/summarize", s.summarize)
			r.Post("/chat", s.chat)
			r.Post("/summarize-files", s.summarizeFiles)
			r.Post("/test", s.testConnection)
		})
	})

	// Event streaming (SSE)
	r.Get("/event", s.allEvents)
}
