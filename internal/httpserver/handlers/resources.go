package handlers

import (
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
)

type submitRequest struct {
	URL    string `json:"url"`
	UserID string `json:"userId"`
}

type refreshRequest struct {
	UserID     string `json:"userId"`
	ResourceID string `json:"resourceId"`
}

type refreshResponse struct {
	Refreshed bool `json:"refreshed"`
}

// SubmitResource publishes a link. The submission status is the result,
// whatever it is, so a rejected link still answers 200.
func SubmitResource(d deps.Deps) http.HandlerFunc {
	return submit(d, true, func(r *http.Request, req submitRequest) (domain.SubmitResult, error) {
		return d.Resources.Submit(r.Context(), req.UserID, req.URL)
	})
}

// submit decodes a {url, userId} body. Guide bookmarks carry no submitter,
// so withUser is false for them.
func submit(d deps.Deps, withUser bool, fn func(*http.Request, submitRequest) (domain.SubmitResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		err := decodeJSON(w, r, &req)
		if err == nil {
			err = required("url", req.URL)
		}
		if err == nil && withUser {
			err = required("userId", req.UserID)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		res, err := fn(r, req)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func RefreshResource(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		err := decodeJSON(w, r, &req)
		if err == nil {
			err = required("resourceId", req.ResourceID)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		ok, err := d.Resources.Refresh(r.Context(), req.UserID, req.ResourceID)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, refreshResponse{Refreshed: ok})
	}
}

func ResourceDetails(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("resourceId")
		if err := required("resourceId", id); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		details, err := d.Resources.GetDetails(r.Context(), id)
		if err == nil && details == nil {
			err = fmt.Errorf("resource %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}

// BackupResources dumps one resource record, or the registry when
// resourceId is omitted.
func BackupResources(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dump, err := d.Resources.Backup(r.Context(), r.URL.Query().Get("resourceId"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dump)
	}
}

func RestoreResources(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dump, err := readDump(w, r)
		if err == nil {
			err = d.Resources.Restore(r.Context(), r.URL.Query().Get("resourceId"), dump)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
