package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
)

type componentStatus struct {
	OK            bool           `json:"ok"`
	Backend       string         `json:"backend,omitempty"`
	RecordsLoaded *int           `json:"records_loaded,omitempty"`
	LastReload    string         `json:"last_reload,omitempty"`
	Live          map[string]int `json:"live,omitempty"`
	Impact        string         `json:"impact,omitempty"`
	Error         string         `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports storage health, index size and live actors.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := d.Index.Count()
		lastReload := "never"
		if t := d.Index.LastReload(); !t.IsZero() {
			lastReload = t.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"storage": checkStorage(r, d),
			"index": {
				OK:            true,
				RecordsLoaded: &records,
				LastReload:    lastReload,
			},
			"actors": {
				OK:   true,
				Live: d.LiveActors(),
			},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if storage, ok := components["storage"]; ok && !storage.OK {
		return "critical"
	}
	if index, ok := components["index"]; ok && index.LastReload == "never" {
		return "degraded"
	}
	return "ok"
}

func checkStorage(r *http.Request, d deps.Deps) componentStatus {
	if err := ping(r.Context(), d); err != nil {
		return componentStatus{
			OK:      false,
			Backend: d.StorageBackend,
			Impact:  "reads-and-writes-failing",
			Error:   "unreachable",
		}
	}
	return componentStatus{OK: true, Backend: d.StorageBackend}
}
