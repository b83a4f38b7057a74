// Package index is the secondary index: a denormalized copy of every
// resource's listing record, persisted as flat KV entries and mirrored in
// memory for listing and search. It is never the source of truth.
package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
)

// KeyPrefix is the KV namespace of index records.
const KeyPrefix = "index:resource:"

// Key returns the KV key of a resource's index record.
func Key(id string) string {
	return KeyPrefix + id
}

// Index stores ResourceMetadata records by resource id.
type Index struct {
	store kv.Store

	mu         sync.RWMutex
	records    map[string]*domain.ResourceMetadata
	lastReload time.Time
}

// New creates an empty index over store. Call Load to read existing records.
func New(store kv.Store) *Index {
	return &Index{
		store:   store,
		records: make(map[string]*domain.ResourceMetadata),
	}
}

// Load replaces the in-memory records with what is persisted.
// Records that fail to decode are skipped and counted.
func (idx *Index) Load(ctx context.Context) (skipped int, err error) {
	entries, err := idx.store.Scan(ctx, KeyPrefix)
	if err != nil {
		return 0, fmt.Errorf("failed to scan index: %w", err)
	}

	records := make([]*domain.ResourceMetadata, 0, len(entries))
	for key, raw := range entries {
		var meta domain.ResourceMetadata
		if err := kv.ValidateJSON(key, raw, &meta); err != nil || meta.ID == "" {
			skipped++
			continue
		}
		records = append(records, &meta)
	}
	idx.Replace(records)
	return skipped, nil
}

// Replace swaps every in-memory record at once.
func (idx *Index) Replace(records []*domain.ResourceMetadata) {
	next := make(map[string]*domain.ResourceMetadata, len(records))
	for _, r := range records {
		next[r.ID] = clone(r)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.records = next
	idx.lastReload = time.Now()
}

// Put writes meta to storage, then to memory.
func (idx *Index) Put(ctx context.Context, meta domain.ResourceMetadata) error {
	if meta.ID == "" {
		return fmt.Errorf("index record without id")
	}
	if err := kv.SetJSON(ctx, idx.store, Key(meta.ID), meta); err != nil {
		return fmt.Errorf("failed to persist index record %s: %w", meta.ID, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.records[meta.ID] = clone(&meta)
	return nil
}

// Delete removes a record from storage and memory.
func (idx *Index) Delete(ctx context.Context, id string) error {
	if err := idx.store.Delete(ctx, Key(id)); err != nil {
		return fmt.Errorf("failed to delete index record %s: %w", id, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.records, id)
	return nil
}

// Get returns a copy of the record for id.
func (idx *Index) Get(id string) (*domain.ResourceMetadata, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	r, ok := idx.records[id]
	if !ok {
		return nil, false
	}
	return clone(r), true
}

// All returns every record, newest first.
func (idx *Index) All() []*domain.ResourceMetadata {
	return idx.filter(func(*domain.ResourceMetadata) bool { return true })
}

// ListByCategory returns the records of one category, newest first.
func (idx *Index) ListByCategory(category string) []*domain.ResourceMetadata {
	return idx.filter(func(r *domain.ResourceMetadata) bool {
		return strings.EqualFold(r.Category, category)
	})
}

// ListByAuthor returns the records of one author, newest first.
func (idx *Index) ListByAuthor(author string) []*domain.ResourceMetadata {
	return idx.filter(func(r *domain.ResourceMetadata) bool {
		return r.Author != "" && strings.EqualFold(r.Author, author)
	})
}

// ListByTag returns the records carrying tag, newest first.
func (idx *Index) ListByTag(tag string) []*domain.ResourceMetadata {
	return idx.filter(func(r *domain.ResourceMetadata) bool {
		for _, t := range r.Tags {
			if strings.EqualFold(t, tag) {
				return true
			}
		}
		return false
	})
}

// Search ranks records by title match and popularity. limit <= 0 means
// no limit.
func (idx *Index) Search(query string, limit int) []*domain.Candidate {
	candidates := domain.RankCandidates(domain.ParseQuery(query), idx.All())
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// Count returns the number of records.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.records)
}

// LastReload returns when the index was last rebuilt from storage.
func (idx *Index) LastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}

func (idx *Index) filter(keep func(*domain.ResourceMetadata) bool) []*domain.ResourceMetadata {
	idx.mu.RLock()
	out := make([]*domain.ResourceMetadata, 0, len(idx.records))
	for _, r := range idx.records {
		if keep(r) {
			out = append(out, clone(r))
		}
	}
	idx.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clone(r *domain.ResourceMetadata) *domain.ResourceMetadata {
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	return &c
}
