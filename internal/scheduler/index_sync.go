package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/linkdex/internal/index"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

// IndexSyncer loads the persisted index records into memory on startup
type IndexSyncer struct {
	index  *index.Index
	logger logger.Logger
}

// NewIndexSyncer creates a new index syncer
func NewIndexSyncer(idx *index.Index, log logger.Logger) *IndexSyncer {
	return &IndexSyncer{
		index:  idx,
		logger: log,
	}
}

// Sync replaces the in-memory index with what storage holds
func (s *IndexSyncer) Sync(ctx context.Context) error {
	s.logger.Info("syncing index records from storage")

	skipped, err := s.index.Load(ctx)
	if err != nil {
		return err
	}

	if skipped > 0 {
		s.logger.Warn("skipped unreadable index records",
			logger.Int("count", skipped))
	}

	s.logger.Info("synced index records",
		logger.Int("count", s.index.Count()))

	return nil
}
