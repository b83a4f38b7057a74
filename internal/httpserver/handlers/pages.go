package handlers

import (
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

type pageRequest struct {
	URL    string `json:"url"`
	UserID string `json:"userId,omitempty"`
}

func (p *pageRequest) decode(w http.ResponseWriter, r *http.Request) error {
	if err := decodeJSON(w, r, p); err != nil {
		return err
	}
	return required("url", p.URL)
}

// GetPage serves a known page. It never triggers an extraction.
func GetPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		if err := required("url", url); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		page, err := d.Pages.Get(r.Context(), url)
		if err == nil && page == nil {
			err = fmt.Errorf("page %s: %w", url, domain.ErrNotFound)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func RefreshPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pageRequest
		if err := req.decode(w, r); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		page, err := d.Pages.Refresh(r.Context(), req.URL)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		pageChanged(d, r, req.URL)
		writeJSON(w, http.StatusOK, page)
	}
}

func ViewPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pageRequest
		if err := req.decode(w, r); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		if err := d.Pages.View(r.Context(), req.URL); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		pageChanged(d, r, req.URL)
		w.WriteHeader(http.StatusNoContent)
	}
}

// BookmarkPage adds (POST) or removes (DELETE) userId from the page's
// bookmark set.
func BookmarkPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pageRequest
		err := req.decode(w, r)
		if err == nil {
			err = required("userId", req.UserID)
		}
		if err == nil {
			if r.Method == http.MethodDelete {
				err = d.Pages.Unbookmark(r.Context(), req.UserID, req.URL)
			} else {
				err = d.Pages.Bookmark(r.Context(), req.UserID, req.URL)
			}
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		pageChanged(d, r, req.URL)
		w.WriteHeader(http.StatusNoContent)
	}
}

func BackupPage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		if err := required("url", url); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		dump, err := d.Pages.Backup(r.Context(), url)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dump)
	}
}

func RestorePage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		url := r.URL.Query().Get("url")
		err := required("url", url)
		var dump map[string]string
		if err == nil {
			dump, err = readDump(w, r)
		}
		if err == nil {
			err = d.Pages.Restore(r.Context(), url, dump)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		pageChanged(d, r, url)
		w.WriteHeader(http.StatusNoContent)
	}
}

// pageChanged brings the listing record of a directly modified page up to
// date. The page change already succeeded, so a failure is only logged and
// left to the reconciler.
func pageChanged(d deps.Deps, r *http.Request, url string) {
	if d.Catalog == nil {
		return
	}
	if err := d.Catalog.PageChanged(r.Context(), url); err != nil {
		d.Logger.Warn("page projection refresh failed",
			logger.String("url", url),
			logger.Error(err))
	}
}
