package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter assembles the public surface: the submission pipeline entry
// point, the conversation read path, and the admin data operations.
func NewRouter(handler *Handler, jwtSecret string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(JWTAuth(jwtSecret))

			r.Route("/conversations/{conversationID}/messages", func(r chi.Router) {
				r.Post("/", handler.SubmitMessage)
				r.Get("/", handler.ListMessages)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/users/{userID}/unsuspend", handler.Unsuspend)
				r.Get("/users/{userID}/strikes", handler.GetStrikes)
				r.Get("/flags", handler.ListFlags)
			})
		})
	})

	return r
}
