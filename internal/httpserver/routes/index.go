package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/handlers"
)

func init() { Register(registerIndex) }

func registerIndex(r chi.Router, d deps.Deps) {
	r.Route("/index", func(r chi.Router) {
		r.Get("/category/{category}", handlers.ByCategory(d))
		r.Get("/author/{author}", handlers.ByAuthor(d))
		r.Get("/tag/{tag}", handlers.ByTag(d))
		r.Get("/search", handlers.Search(d))
	})
}
