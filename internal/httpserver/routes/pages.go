package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/handlers"
)

func init() { Register(registerPages) }

func registerPages(r chi.Router, d deps.Deps) {
	r.Route("/pages", func(r chi.Router) {
		r.Get("/page", handlers.GetPage(d))
		r.With(throttle(d)).Post("/refresh", handlers.RefreshPage(d))
		r.Post("/view", handlers.ViewPage(d))
		r.Post("/bookmark", handlers.BookmarkPage(d))
		r.Delete("/bookmark", handlers.BookmarkPage(d))

		admin := r.With(adminOnly(d)...)
		admin.Post("/backup", handlers.BackupPage(d))
		admin.Post("/restore", handlers.RestorePage(d))
	})
}
