package deps

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/linkdex/internal/catalog"
	"github.com/MrSnakeDoc/linkdex/internal/guides"
	"github.com/MrSnakeDoc/linkdex/internal/index"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
	"github.com/MrSnakeDoc/linkdex/internal/pages"
	"github.com/MrSnakeDoc/linkdex/internal/resources"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
	"github.com/MrSnakeDoc/linkdex/internal/users"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	AllowedOrigins []string // CORS origins
	AllowedHosts   []string // Host headers allowed on admin endpoints
	AllowedCIDRS   []string // IPs allowed on backup/restore/reindex
	TrustProxy     bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)

	SubmitBurst        int                             // submissions a client may burst
	SubmitRefillPerMin int                             // submissions refilled per client per minute
	SubmitLimiter      func(http.Handler) http.Handler // shared by every route that triggers an extraction

	StorageBackend string   // "redis" | "sqlite" | "memory"
	Storage        kv.Store // persistent KV, pinged by readyz and infra

	Pages     *pages.Store
	Resources *resources.Store
	Users     *users.Store
	Guides    *guides.Store
	Catalog   *catalog.Catalog
	Index     *index.Index

	ReindexTrigger chan struct{} // Channel to trigger a manual projection reconcile
}

// LiveActors reports the actors currently in memory, per store.
func (d Deps) LiveActors() map[string]int {
	live := make(map[string]int, 4)
	if d.Pages != nil {
		live["pages"] = d.Pages.Live()
	}
	if d.Resources != nil {
		live["resources"] = d.Resources.Live()
	}
	if d.Users != nil {
		live["users"] = d.Users.Live()
	}
	if d.Guides != nil {
		live["guides"] = d.Guides.Live()
	}
	return live
}
