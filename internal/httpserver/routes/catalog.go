package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/handlers"
)

func init() { Register(registerCatalog) }

func registerCatalog(r chi.Router, d deps.Deps) {
	r.Route("/catalog", func(r chi.Router) {
		r.With(throttle(d)).Post("/submit", handlers.CatalogSubmit(d))
		r.Put("/bookmark", handlers.CatalogBookmark(d))
		r.Delete("/bookmark", handlers.CatalogBookmark(d))
		r.Put("/view", handlers.CatalogView(d))
		r.Get("/resources/{resourceId}", handlers.CatalogResource(d))
	})
}
