package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type searchHit struct {
	Resource *domain.ResourceMetadata `json:"resource"`
	Score    float64                  `json:"score"`
}

// ByCategory, ByAuthor and ByTag list index records, newest first.
func ByCategory(d deps.Deps) http.HandlerFunc {
	return listing(func(r *http.Request) []*domain.ResourceMetadata {
		return d.Index.ListByCategory(chi.URLParam(r, "category"))
	})
}

func ByAuthor(d deps.Deps) http.HandlerFunc {
	return listing(func(r *http.Request) []*domain.ResourceMetadata {
		return d.Index.ListByAuthor(chi.URLParam(r, "author"))
	})
}

func ByTag(d deps.Deps) http.HandlerFunc {
	return listing(func(r *http.Request) []*domain.ResourceMetadata {
		return d.Index.ListByTag(chi.URLParam(r, "tag"))
	})
}

func listing(list func(*http.Request) []*domain.ResourceMetadata) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records := list(r)
		if records == nil {
			records = []*domain.ResourceMetadata{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// Search ranks the catalogue against ?q=, capped by ?limit=.
func Search(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		if err := required("q", query); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}

		limit := defaultSearchLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = min(n, maxSearchLimit)
			}
		}

		candidates := d.Index.Search(query, limit)
		hits := make([]searchHit, 0, len(candidates))
		for _, c := range candidates {
			hits = append(hits, searchHit{Resource: c.Resource, Score: c.TotalScore})
		}

		d.Logger.Debug("search request",
			logger.String("query", query),
			logger.Int("hits", len(hits)))
		writeJSON(w, http.StatusOK, hits)
	}
}
