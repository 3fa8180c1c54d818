package chat

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers chat routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/v1/chat", func(r chi.Router) {
		r.Post("/", h.Chat)
		r.Post("/stream", h.ChatStream)
		r.Get("/stats", h.Stats)
		r.Get("/cache/stats", h.CacheStats)
		r.Post("/cache/clear", h.ClearCache)
		r.Get("/sessions/{id}/transcript", h.Transcript)
		r.Delete("/sessions/{id}", h.ClearSession)
	})
}
