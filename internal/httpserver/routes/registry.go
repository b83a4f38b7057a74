package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdex/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdex/internal/httpserver/mw"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
}

var registry []entry

// Register a registrar with optional per-route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterAll mounts every registered group on r. Called once per router.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range registry {
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		sub := r.With(e.mws...) // apply per-route middlewares
		e.reg(sub, d)
	}
}

// throttle returns the shared submission limiter, or a passthrough.
func throttle(d deps.Deps) Middleware {
	if d.SubmitLimiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return d.SubmitLimiter
}

// internalOnly restricts probes to the allowed networks.
func internalOnly(d deps.Deps) Middleware {
	return mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger)
}

// adminOnly restricts backup, restore and reindex routes.
func adminOnly(d deps.Deps) []Middleware {
	return []Middleware{internalOnly(d), mw.EnforceHost(d.AllowedHosts, d.Logger)}
}
