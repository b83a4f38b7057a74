package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
)

type catalogRequest struct {
	UserID     string `json:"userId"`
	ResourceID string `json:"resourceId"`
}

func CatalogSubmit(d deps.Deps) http.HandlerFunc {
	return submit(d, true, func(r *http.Request, req submitRequest) (domain.SubmitResult, error) {
		return d.Catalog.Submit(r.Context(), req.UserID, req.URL)
	})
}

// CatalogBookmark bookmarks (PUT) or unbookmarks (DELETE) a resource for
// a user, across the user, page and listing.
func CatalogBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalogRequest
		err := decodeJSON(w, r, &req)
		if err == nil {
			err = required("userId", req.UserID)
		}
		if err == nil {
			err = required("resourceId", req.ResourceID)
		}
		if err == nil {
			if r.Method == http.MethodDelete {
				err = d.Catalog.Unbookmark(r.Context(), req.UserID, req.ResourceID)
			} else {
				err = d.Catalog.Bookmark(r.Context(), req.UserID, req.ResourceID)
			}
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CatalogView counts a view. userId may be empty for anonymous visitors.
func CatalogView(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req catalogRequest
		err := decodeJSON(w, r, &req)
		if err == nil {
			err = required("resourceId", req.ResourceID)
		}
		if err == nil {
			err = d.Catalog.View(r.Context(), req.UserID, req.ResourceID)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func CatalogResource(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		meta, err := d.Catalog.GetResource(r.Context(), chi.URLParam(r, "resourceId"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, meta)
	}
}
