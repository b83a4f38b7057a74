package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
)

type guideBookmarkRequest struct {
	BookmarkID string `json:"bookmarkId"`
	List       string `json:"list,omitempty"`
}

type listRequest struct {
	Slug        string `json:"slug"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

func GetGuide(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guide, err := d.Guides.Get(r.Context(), chi.URLParam(r, "guideId"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, guide)
	}
}

// GuideBookmarks lists the whole guide, or one list with ?list=slug.
func GuideBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := d.Guides.Bookmarks(r.Context(), chi.URLParam(r, "guideId"), r.URL.Query().Get("list"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if views == nil {
			views = []*domain.BookmarkView{}
		}
		writeJSON(w, http.StatusOK, views)
	}
}

func CreateGuideBookmark(d deps.Deps) http.HandlerFunc {
	return submit(d, false, func(r *http.Request, req submitRequest) (domain.SubmitResult, error) {
		return d.Guides.CreateBookmark(r.Context(), chi.URLParam(r, "guideId"), req.URL)
	})
}

// UpdateGuideBookmark toggles the bookmark's membership in a list.
func UpdateGuideBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req guideBookmarkRequest
		err := decodeJSON(w, r, &req)
		if err == nil {
			err = required("bookmarkId", req.BookmarkID)
		}
		if err == nil {
			err = required("list", req.List)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Guides.UpdateBookmark(r.Context(), chi.URLParam(r, "guideId"), req.BookmarkID, req.List)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func DeleteGuideBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req guideBookmarkRequest
		err := decodeJSON(w, r, &req)
		if err == nil {
			err = required("bookmarkId", req.BookmarkID)
		}
		if err == nil {
			err = d.Guides.DeleteBookmark(r.Context(), chi.URLParam(r, "guideId"), req.BookmarkID)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func CreateGuideList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req listRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		list, err := d.Guides.CreateList(r.Context(), chi.URLParam(r, "guideId"), req.Slug, req.Title, req.Description)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, list)
	}
}

func UpdateGuideList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req listRequest
		err := decodeJSON(w, r, &req)
		if err == nil {
			err = required("slug", req.Slug)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		list, err := d.Guides.UpdateList(r.Context(), chi.URLParam(r, "guideId"), req.Slug, req.Title, req.Description)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func DeleteGuideList(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req listRequest
		err := decodeJSON(w, r, &req)
		if err == nil {
			err = required("slug", req.Slug)
		}
		if err == nil {
			err = d.Guides.DeleteList(r.Context(), chi.URLParam(r, "guideId"), req.Slug)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func BackupGuide(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dump, err := d.Guides.Backup(r.Context(), chi.URLParam(r, "guideId"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dump)
	}
}

func RestoreGuide(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dump, err := readDump(w, r)
		if err == nil {
			err = d.Guides.Restore(r.Context(), chi.URLParam(r, "guideId"), dump)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
