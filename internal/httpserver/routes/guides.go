package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/handlers"
)

func init() { Register(registerGuides) }

func registerGuides(r chi.Router, d deps.Deps) {
	r.Route("/guides/{guideId}", func(r chi.Router) {
		r.Get("/", handlers.GetGuide(d))

		r.Get("/bookmarks", handlers.GuideBookmarks(d))
		r.With(throttle(d)).Post("/bookmarks", handlers.CreateGuideBookmark(d))
		r.Put("/bookmarks", handlers.UpdateGuideBookmark(d))
		r.Delete("/bookmarks", handlers.DeleteGuideBookmark(d))

		r.Post("/lists", handlers.CreateGuideList(d))
		r.Put("/lists", handlers.UpdateGuideList(d))
		r.Delete("/lists", handlers.DeleteGuideList(d))

		admin := r.With(adminOnly(d)...)
		admin.Post("/backup", handlers.BackupGuide(d))
		admin.Post("/restore", handlers.RestoreGuide(d))
	})
}
