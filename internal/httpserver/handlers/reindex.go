package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

type reindexResponse struct {
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Reindex asks the reconciler for an immediate pass. A pass already queued
// answers 429.
func Reindex(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case d.ReindexTrigger <- struct{}{}:
			d.Logger.Info("manual reindex triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusAccepted, reindexResponse{Triggered: true, Message: "reindex triggered"})
		default:
			d.Logger.Warn("reindex already pending",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, http.StatusTooManyRequests, reindexResponse{Message: "reindex already pending, please wait"})
		}
	}
}
