package delivery

import (
	"github.com/Vovarama1992/go-utils/httputil"
	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, h *ChatHandler) {
	r.Route("/", func(pr chi.Router) {
		pr.Use(httputil.RecoverMiddleware)

		pr.Get("/health", h.Health)

		// --- сессии ---
		pr.Get("/sessions", h.ListSessions)
		pr.Post("/session/new", h.NewSession)
		pr.Get("/sessions/{session_id}", h.SessionDetail)
		pr.Delete("/sessions/{session_id}", h.DeleteSession)

		// --- чат и речь ---
		pr.Post("/chat", h.Chat)
		pr.Post("/stt-tts", h.SpeechToText)
		pr.Post("/upload-media", h.UploadMedia)
	})
}
