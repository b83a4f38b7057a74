package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/handlers"
)

func init() { Register(registerUsers) }

func registerUsers(r chi.Router, d deps.Deps) {
	r.Route("/users/{userId}", func(r chi.Router) {
		r.Get("/", handlers.GetUser(d))
		r.Put("/profile", handlers.UpdateProfile(d))
		r.Put("/view", handlers.UserView(d))
		r.Put("/bookmark", handlers.UserBookmark(d))
		r.Delete("/bookmark", handlers.UserBookmark(d))

		admin := r.With(adminOnly(d)...)
		admin.Post("/backup", handlers.BackupUser(d))
		admin.Post("/restore", handlers.RestoreUser(d))
	})
}
