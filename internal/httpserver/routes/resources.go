package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/handlers"
)

func init() { Register(registerResources) }

func registerResources(r chi.Router, d deps.Deps) {
	r.Route("/resources", func(r chi.Router) {
		r.With(throttle(d)).Post("/submit", handlers.SubmitResource(d))
		r.With(throttle(d)).Post("/refresh", handlers.RefreshResource(d))
		r.Get("/details", handlers.ResourceDetails(d))

		admin := r.With(adminOnly(d)...)
		admin.Post("/backup", handlers.BackupResources(d))
		admin.Post("/restore", handlers.RestoreResources(d))
	})
}
