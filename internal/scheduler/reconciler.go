package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/linkdex/internal/index"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

// Resources is what the reconciler needs from the Resource Store.
type Resources interface {
	IDs(ctx context.Context) ([]string, error)
	Refresh(ctx context.Context, userID, id string) (bool, error)
}

// Report summarizes one reconciliation pass.
type Report struct {
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
	Pruned    int `json:"pruned"`
}

// Reconciler periodically re-derives every resource's index record from
// its page and drops index records whose resource no longer exists.
type Reconciler struct {
	resources     Resources
	index         *index.Index
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewReconciler creates a new reconciler
func NewReconciler(
	res Resources,
	idx *index.Index,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Reconciler {
	return &Reconciler{
		resources:     res,
		index:         idx,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start begins the periodic reconciliation. Unlike startup sync, the
// first pass waits for the first tick: the index was just loaded.
func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.run(ctx)
			case <-r.manualTrigger:
				r.logger.Info("manual reindex triggered")
				r.run(ctx)
			case <-r.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the reconciler
func (r *Reconciler) Stop() {
	close(r.stopCh)
}

func (r *Reconciler) run(ctx context.Context) {
	if _, err := r.Reconcile(ctx); err != nil {
		r.logger.Error("reconciliation failed",
			logger.Error(err))
	}
}

// Reconcile runs one pass. A failing resource is logged and skipped.
func (r *Reconciler) Reconcile(ctx context.Context) (Report, error) {
	started := time.Now()
	var rep Report

	ids, err := r.resources.IDs(ctx)
	if err != nil {
		return rep, err
	}

	live := make(map[string]bool, len(ids))
	for _, id := range ids {
		live[id] = true
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		if _, err := r.resources.Refresh(ctx, "", id); err != nil {
			r.logger.Warn("failed to refresh index record",
				logger.String("id", id),
				logger.Error(err))
			rep.Failed++
			continue
		}
		rep.Refreshed++
	}

	// Submit registers an id before projecting it, so every record in this
	// snapshot belongs to an id the second IDs read can see.
	records := r.index.All()
	current, err := r.resources.IDs(ctx)
	if err != nil {
		return rep, err
	}
	for _, id := range current {
		live[id] = true
	}

	for _, meta := range records {
		if live[meta.ID] {
			continue
		}
		if err := r.index.Delete(ctx, meta.ID); err != nil {
			r.logger.Warn("failed to prune index record",
				logger.String("id", meta.ID),
				logger.Error(err))
			continue
		}
		rep.Pruned++
	}

	r.logger.Info("reconciliation completed",
		logger.Int("refreshed", rep.Refreshed),
		logger.Int("failed", rep.Failed),
		logger.Int("pruned", rep.Pruned),
		logger.Duration("took", time.Since(started)))

	return rep, nil
}
