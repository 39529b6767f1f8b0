package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tripweaver/internal/web/handlers"
)

func (s *Server) setupRoutes(h Handlers) {
	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Photos
		r.Post("/photos/upload", h.Photos.Upload)
		r.Post("/photos/upload/batch", h.Photos.UploadBatch)
		r.Get("/photos/{vacationID}", h.Photos.ListByVacation)

		// Generative endpoints
		r.Post("/ai/generate-itinerary", h.AI.GenerateItinerary)
		r.Post("/ai/analyze-photo", h.AI.AnalyzePhoto)
		r.Post("/ai/generate-trip-name", h.AI.GenerateTripName)
		r.Post("/ai/suggest-tags", h.AI.SuggestTags)
		r.Post("/ai/vacations/{id}/generate-summary", h.AI.GenerateSummary)
		r.Post("/ai/vacations/{id}/generate-highlights", h.AI.GenerateHighlights)
		r.Get("/ai/vacations/{id}/highlights", h.AI.ListHighlights)
		r.Post("/ai/vacations/{id}/add-tags", h.AI.AddTags)
	})

	// Uploaded photos and thumbnails
	fileServer := http.FileServer(http.Dir(s.config.Storage.Root))
	s.router.Handle("/files/*", http.StripPrefix("/files/", fileServer))
}
