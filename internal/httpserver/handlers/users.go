package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
)

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type resourceRequest struct {
	ResourceID string `json:"resourceId"`
}

func (p *resourceRequest) decode(w http.ResponseWriter, r *http.Request) error {
	if err := decodeJSON(w, r, p); err != nil {
		return err
	}
	return required("resourceId", p.ResourceID)
}

func GetUser(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "userId")
		user, err := d.Users.Get(r.Context(), id)
		if err == nil && user == nil {
			err = fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func UpdateProfile(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req profileRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		profile, err := d.Users.UpdateProfile(r.Context(), domain.Profile{
			ID:    chi.URLParam(r, "userId"),
			Name:  req.Name,
			Email: req.Email,
		})
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// UserView records a view in the user's history only. Page counters are
// the catalog's job.
func UserView(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resourceRequest
		err := req.decode(w, r)
		if err == nil {
			err = d.Users.View(r.Context(), chi.URLParam(r, "userId"), req.ResourceID)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func UserBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resourceRequest
		err := req.decode(w, r)
		if err == nil {
			userID := chi.URLParam(r, "userId")
			if r.Method == http.MethodDelete {
				err = d.Users.Unbookmark(r.Context(), userID, req.ResourceID)
			} else {
				err = d.Users.Bookmark(r.Context(), userID, req.ResourceID)
			}
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func BackupUser(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dump, err := d.Users.Backup(r.Context(), chi.URLParam(r, "userId"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dump)
	}
}

func RestoreUser(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dump, err := readDump(w, r)
		if err == nil {
			err = d.Users.Restore(r.Context(), chi.URLParam(r, "userId"), dump)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
