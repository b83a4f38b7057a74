// Package resources owns published submissions.
//
// A single registry actor holds the url→id and package→id maps; one actor
// per resource id holds the Resource record. Every mutation re-derives the
// resource's listing record into the secondary index.
package resources

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/linkdex/internal/actor"
	"github.com/MrSnakeDoc/linkdex/internal/cache"
	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/index"
	"github.com/MrSnakeDoc/linkdex/internal/integrations"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
)

const (
	// registryKey is the only key of the registry actor system.
	registryKey = "registry"

	keyResource   = "resource"
	prefixURL     = "url:"
	prefixPackage = "package:"
)

// Pages is the part of the Page Store used by resources.
type Pages interface {
	GetOrCreate(ctx context.Context, url string) (*domain.Page, error)
	Current(ctx context.Context, url string) (*domain.Page, error)
}

type registry struct {
	byURL     map[string]string
	byPackage map[string]string
}

type entry struct {
	res *domain.Resource
}

// Store is the Resource Store.
type Store struct {
	kv     kv.Store
	pages  Pages
	index  *index.Index
	table  *integrations.Table
	cache  cache.Cache
	bg     *actor.Background
	reg    *actor.System[registry]
	sys    *actor.System[entry]
	log    logger.Logger
	now    func() time.Time
	nextID func() string
}

// New creates a Resource Store.
func New(store kv.Store, pages Pages, idx *index.Index, table *integrations.Table, c cache.Cache, bg *actor.Background, idle time.Duration, log logger.Logger) *Store {
	s := &Store{
		kv:     store,
		pages:  pages,
		index:  idx,
		table:  table,
		cache:  c,
		bg:     bg,
		log:    log.With(logger.String("store", "resources")),
		now:    time.Now,
		nextID: uuid.NewString,
	}
	// The registry is hit by every submission: never evict it.
	s.reg = actor.NewSystem(actor.Options{Name: "resource-registry"}, s.loadRegistry, bg, log)
	s.sys = actor.NewSystem(actor.Options{Name: "resources", IdleTimeout: idle}, s.loadEntry, bg, log)
	return s
}

// Close stops every resource actor.
func (s *Store) Close() {
	s.sys.Close()
	s.reg.Close()
}

// Live returns the number of running resource actors, registry included.
func (s *Store) Live() int { return s.sys.Live() + s.reg.Live() }

func registryNamespace() string       { return kv.Namespace("resources", registryKey) }
func entryNamespace(id string) string { return kv.Namespace("resource", id) }

func (s *Store) loadRegistry(ctx context.Context, _ string) (*registry, error) {
	entries, err := kv.Dump(ctx, s.kv, registryNamespace())
	if err != nil {
		return nil, err
	}
	reg, err := decodeRegistry(entries)
	if err != nil {
		return nil, err
	}
	s.log.Info("resource registry warmed", logger.Int("urls", len(reg.byURL)), logger.Int("packages", len(reg.byPackage)))
	return reg, nil
}

func decodeRegistry(entries map[string]string) (*registry, error) {
	reg := &registry{byURL: make(map[string]string), byPackage: make(map[string]string)}
	for k, id := range entries {
		if id == "" {
			return nil, fmt.Errorf("%w: key %q: empty resource id", domain.ErrRestoreFailed, k)
		}
		switch {
		case strings.HasPrefix(k, prefixURL):
			reg.byURL[strings.TrimPrefix(k, prefixURL)] = id
		case strings.HasPrefix(k, prefixPackage):
			reg.byPackage[strings.TrimPrefix(k, prefixPackage)] = id
		default:
			return nil, fmt.Errorf("%w: unexpected key %q", domain.ErrRestoreFailed, k)
		}
	}
	return reg, nil
}

func (s *Store) loadEntry(ctx context.Context, id string) (*entry, error) {
	entries, err := kv.Dump(ctx, s.kv, entryNamespace(id))
	if err != nil {
		return nil, err
	}
	return decodeEntry(id, entries)
}

func decodeEntry(id string, entries map[string]string) (*entry, error) {
	raw, ok := entries[keyResource]
	if !ok {
		return &entry{}, nil
	}
	var res domain.Resource
	if err := kv.ValidateJSON(keyResource, raw, &res); err != nil {
		return nil, err
	}
	if res.ID != id {
		return nil, fmt.Errorf("%w: record id %q stored under %q", domain.ErrRestoreFailed, res.ID, id)
	}
	return &entry{res: &res}, nil
}

// Submit publishes url on behalf of userID. Unsafe or malformed URLs yield
// StatusInvalid; an already published canonical URL yields
// StatusResubmitted with the existing id.
func (s *Store) Submit(ctx context.Context, userID, rawURL string) (domain.SubmitResult, error) {
	page, err := s.pages.GetOrCreate(ctx, rawURL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return domain.SubmitResult{Status: domain.StatusInvalid}, nil
		}
		return domain.SubmitResult{}, err
	}
	if !page.IsSafe {
		s.log.Warn("unsafe submission rejected", logger.String("url", page.URL), logger.String("user", userID))
		return domain.SubmitResult{Status: domain.StatusInvalid}, nil
	}

	var result domain.SubmitResult
	err = s.reg.Process(ctx, registryKey, func(ctx context.Context, reg *registry) error {
		if id, ok := reg.byURL[page.URL]; ok {
			result = domain.SubmitResult{ID: id, Status: domain.StatusResubmitted}
			return nil
		}

		now := s.now()
		res := domain.Resource{
			ID:        s.nextID(),
			URL:       page.URL,
			CreatedBy: userID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		// A fresh id has no live actor yet, so its record is written here.
		if err := kv.SetJSON(ctx, s.kv, entryNamespace(res.ID)+keyResource, res); err != nil {
			return err
		}

		ns := registryNamespace()
		writes := map[string]string{ns + prefixURL + page.URL: res.ID}
		if page.Category == domain.CategoryPackage && page.Title != "" {
			writes[ns+prefixPackage+page.Title] = res.ID
		}
		if err := s.kv.SetMany(ctx, writes); err != nil {
			return err
		}

		reg.byURL[page.URL] = res.ID
		if page.Category == domain.CategoryPackage && page.Title != "" {
			reg.byPackage[page.Title] = res.ID
		}
		result = domain.SubmitResult{ID: res.ID, Status: domain.StatusPublished}
		return nil
	})
	if err != nil {
		return domain.SubmitResult{}, err
	}

	if result.Status == domain.StatusPublished {
		s.log.Info("resource published", logger.String("id", result.ID), logger.String("url", page.URL), logger.String("user", userID))
		if _, err := s.Refresh(ctx, "", result.ID); err != nil {
			s.log.Warn("projection failed", logger.String("id", result.ID), logger.Error(err))
		}
	}
	return result, nil
}

// Get returns the Resource record, or nil when the id is unknown.
func (s *Store) Get(ctx context.Context, id string) (*domain.Resource, error) {
	var res *domain.Resource
	err := s.sys.Process(ctx, id, func(_ context.Context, e *entry) error {
		if e.res != nil {
			c := *e.res
			res = &c
		}
		return nil
	})
	return res, err
}

// Refresh re-derives the listing record of id from its page. It never
// re-extracts. A non-empty userID is recorded as the last updater. It
// reports false when the id is unknown.
func (s *Store) Refresh(ctx context.Context, userID, id string) (bool, error) {
	names, err := s.PackageNames(ctx)
	if err != nil {
		return false, err
	}

	found := false
	err = s.sys.Process(ctx, id, func(ctx context.Context, e *entry) error {
		if e.res == nil {
			return nil
		}
		found = true

		if userID != "" {
			next := *e.res
			next.UpdatedBy = userID
			next.UpdatedAt = s.now()
			if err := kv.SetJSON(ctx, s.kv, entryNamespace(id)+keyResource, next); err != nil {
				return err
			}
			e.res = &next
		}
		return s.project(ctx, e.res, names)
	})
	if err != nil || !found {
		return found, err
	}
	s.invalidate(id)
	return true, nil
}

// project writes the listing record of res. It runs inside the resource's
// actor so projections of one resource never overtake each other.
func (s *Store) project(ctx context.Context, res *domain.Resource, packages []string) error {
	page, err := s.pages.Current(ctx, res.URL)
	if err != nil {
		return err
	}
	var tags []string
	if page != nil {
		tags = s.table.Derive(&page.PageDraft, packages)
	}
	return s.index.Put(ctx, domain.Project(res, page, tags))
}

// GetDetails returns the resource with its listing record, or nil when
// the id is unknown. It schedules a projection refresh as a side effect.
func (s *Store) GetDetails(ctx context.Context, id string) (*domain.ResourceDetails, error) {
	res, err := s.Get(ctx, id)
	if err != nil || res == nil {
		return nil, err
	}

	details := &domain.ResourceDetails{Resource: *res}
	if meta, ok := s.index.Get(id); ok {
		details.Metadata = *meta
	} else {
		page, err := s.pages.Current(ctx, res.URL)
		if err != nil {
			return nil, err
		}
		details.Metadata = domain.Project(res, page, nil)
	}

	s.bg.Go("refresh resource "+id, func(ctx context.Context) error {
		_, err := s.Refresh(ctx, "", id)
		return err
	})
	return details, nil
}

// ByPackage returns the id of the resource published for a package name.
func (s *Store) ByPackage(ctx context.Context, name string) (string, bool, error) {
	var id string
	var ok bool
	err := s.reg.Process(ctx, registryKey, func(_ context.Context, reg *registry) error {
		id, ok = reg.byPackage[name]
		return nil
	})
	return id, ok, err
}

// ByURL returns the id of the resource published for a canonical page URL.
func (s *Store) ByURL(ctx context.Context, pageURL string) (string, bool, error) {
	var id string
	var ok bool
	err := s.reg.Process(ctx, registryKey, func(_ context.Context, reg *registry) error {
		id, ok = reg.byURL[pageURL]
		return nil
	})
	return id, ok, err
}

// PackageNames returns every published package name, sorted.
func (s *Store) PackageNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.reg.Process(ctx, registryKey, func(_ context.Context, reg *registry) error {
		names = make([]string, 0, len(reg.byPackage))
		for name := range reg.byPackage {
			names = append(names, name)
		}
		return nil
	})
	sort.Strings(names)
	return names, err
}

// IDs returns every published resource id, sorted.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.reg.Process(ctx, registryKey, func(_ context.Context, reg *registry) error {
		ids = make([]string, 0, len(reg.byURL))
		for _, id := range reg.byURL {
			ids = append(ids, id)
		}
		return nil
	})
	sort.Strings(ids)
	return ids, err
}

// Backup dumps the raw state of one actor: the registry when id is empty,
// otherwise the resource id.
func (s *Store) Backup(ctx context.Context, id string) (map[string]string, error) {
	var dump map[string]string
	op := func(ns string) func(context.Context) error {
		return func(ctx context.Context) error {
			d, err := kv.Dump(ctx, s.kv, ns)
			dump = d
			return err
		}
	}

	var err error
	if id == "" {
		read := op(registryNamespace())
		err = s.reg.Process(ctx, registryKey, func(ctx context.Context, _ *registry) error { return read(ctx) })
	} else {
		read := op(entryNamespace(id))
		err = s.sys.Process(ctx, id, func(ctx context.Context, _ *entry) error { return read(ctx) })
	}
	return dump, err
}

// Restore replaces the raw state of one actor, chosen as in Backup, and
// rebuilds its in-memory maps from the restored data.
func (s *Store) Restore(ctx context.Context, id string, dump map[string]string) error {
	if err := kv.ValidateDump(dump); err != nil {
		return err
	}

	if id == "" {
		if _, err := decodeRegistry(dump); err != nil {
			return err
		}
		err := s.reg.Reload(ctx, registryKey, func(ctx context.Context) error {
			return kv.Restore(ctx, s.kv, registryNamespace(), dump)
		})
		if err != nil {
			return err
		}
		s.log.Info("resource registry restored", logger.Int("keys", len(dump)))
		return nil
	}

	if _, err := decodeEntry(id, dump); err != nil {
		return err
	}
	err := s.sys.Reload(ctx, id, func(ctx context.Context) error {
		return kv.Restore(ctx, s.kv, entryNamespace(id), dump)
	})
	if err != nil {
		return err
	}
	s.log.Info("resource restored", logger.String("id", id), logger.Int("keys", len(dump)))

	s.bg.Go("reproject resource "+id, func(ctx context.Context) error {
		found, err := s.Refresh(ctx, "", id)
		if err == nil && !found {
			return s.index.Delete(ctx, id)
		}
		return err
	})
	return nil
}

func (s *Store) invalidate(id string) {
	s.bg.Go("invalidate resource "+id, func(ctx context.Context) error {
		return s.cache.Invalidate(ctx, cache.ResourceKey(id))
	})
}
