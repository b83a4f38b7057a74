// Package pages owns Page records: one actor per normalized URL, creating
// the page through the extractor on first reference.
//
// A URL whose extracted canonical URL differs from itself keeps only an
// alias record; the Page lives in the canonical URL's actor.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/linkdex/internal/actor"
	"github.com/MrSnakeDoc/linkdex/internal/cache"
	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
)

// Storage keys inside a page namespace.
const (
	keyPage      = "page"
	keyViews     = "viewCount"
	keyBookmarks = "bookmarkUserIds"
	keyAlias     = "alias"
)

// maxAliasHops bounds alias chains built by successive extractions.
const maxAliasHops = 3

// Extractor produces page data for a URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (*domain.PageDraft, error)
}

// record is the persisted part of a Page that is not a counter.
type record struct {
	domain.PageDraft
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type state struct {
	page  *domain.Page
	alias string
}

// Store is the Page Store.
type Store struct {
	kv        kv.Store
	extractor Extractor
	cache     cache.Cache
	bg        *actor.Background
	sys       *actor.System[state]
	log       logger.Logger
	now       func() time.Time
}

// New creates a Page Store.
func New(store kv.Store, ex Extractor, c cache.Cache, bg *actor.Background, idle time.Duration, log logger.Logger) *Store {
	s := &Store{
		kv:        store,
		extractor: ex,
		cache:     c,
		bg:        bg,
		log:       log.With(logger.String("store", "pages")),
		now:       time.Now,
	}
	s.sys = actor.NewSystem(actor.Options{Name: "pages", IdleTimeout: idle}, s.load, bg, log)
	return s
}

// Close stops every page actor.
func (s *Store) Close() { s.sys.Close() }

// Live returns the number of running page actors.
func (s *Store) Live() int { return s.sys.Live() }

func namespace(url string) string { return kv.Namespace("page", url) }

func (s *Store) load(ctx context.Context, url string) (*state, error) {
	entries, err := kv.Dump(ctx, s.kv, namespace(url))
	if err != nil {
		return nil, err
	}
	return decode(url, entries)
}

// decode rebuilds a page actor's state from its raw entries. It is shared
// by warm-up and restore validation.
func decode(url string, entries map[string]string) (*state, error) {
	st := &state{alias: entries[keyAlias]}

	raw, ok := entries[keyPage]
	if !ok {
		return st, nil
	}

	var rec record
	if err := kv.ValidateJSON(keyPage, raw, &rec); err != nil {
		return nil, err
	}
	page := &domain.Page{PageDraft: rec.PageDraft, CreatedAt: rec.CreatedAt, UpdatedAt: rec.UpdatedAt}
	page.URL = url
	page.BookmarkUserIDs = []string{}

	if v, ok := entries[keyViews]; ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: key %q: invalid view count %q", domain.ErrRestoreFailed, keyViews, v)
		}
		page.ViewCount = n
	}
	if v, ok := entries[keyBookmarks]; ok {
		var ids []string
		if err := kv.ValidateJSON(keyBookmarks, v, &ids); err != nil {
			return nil, err
		}
		for _, id := range ids {
			page.BookmarkUserIDs, _ = domain.AppendUnique(page.BookmarkUserIDs, id)
		}
	}
	st.page = page
	return st, nil
}

func (s *Store) persistPage(ctx context.Context, page *domain.Page) error {
	rec, err := kv.Marshal(record{PageDraft: page.PageDraft, CreatedAt: page.CreatedAt, UpdatedAt: page.UpdatedAt})
	if err != nil {
		return err
	}
	ids, err := kv.Marshal(page.BookmarkUserIDs)
	if err != nil {
		return err
	}
	ns := namespace(page.URL)
	return s.kv.SetMany(ctx, map[string]string{
		ns + keyPage:      rec,
		ns + keyViews:     strconv.FormatInt(page.ViewCount, 10),
		ns + keyBookmarks: ids,
	})
}

// Get returns the Page for url, following an alias, or nil when none
// exists. It never extracts.
func (s *Store) Get(ctx context.Context, rawURL string) (*domain.Page, error) {
	key, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if p, ok, _ := cache.GetJSON[domain.Page](ctx, s.cache, cache.PageKey(key)); ok {
		return p, nil
	}

	return s.current(ctx, key)
}

// Current is Get without the cache: the Page as its actor holds it now.
// Projections read pages through it so they never see a stale entry.
func (s *Store) Current(ctx context.Context, rawURL string) (*domain.Page, error) {
	key, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	return s.current(ctx, key)
}

func (s *Store) current(ctx context.Context, key string) (*domain.Page, error) {
	var page *domain.Page
	err := s.onPage(ctx, key, func(ctx context.Context, st *state) error {
		page = copyPage(st.page)
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return page, err
}

// GetOrCreate returns the Page for url, extracting and persisting it on
// first reference. Concurrent calls for one URL extract once.
func (s *Store) GetOrCreate(ctx context.Context, rawURL string) (*domain.Page, error) {
	key, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	if p, ok, _ := cache.GetJSON[domain.Page](ctx, s.cache, cache.PageKey(key)); ok {
		return p, nil
	}

	var adopt *domain.PageDraft
	for hop := 0; hop <= maxAliasHops; hop++ {
		var page *domain.Page
		var next string
		var draft *domain.PageDraft

		err := s.sys.Process(ctx, key, func(ctx context.Context, st *state) error {
			if st.page != nil {
				page = copyPage(st.page)
				return nil
			}
			if st.alias != "" {
				next = st.alias
				return nil
			}

			d := adopt
			if d == nil || d.URL != key {
				extracted, err := s.extractor.Extract(ctx, key)
				if err != nil {
					return err
				}
				d = extracted
			}

			canonical := d.URL
			if canonical == "" {
				canonical = key
			}
			if canonical != key {
				if err := s.kv.Set(ctx, namespace(key)+keyAlias, canonical); err != nil {
					return err
				}
				st.alias = canonical
				next, draft = canonical, d
				s.log.Debug("page aliased", logger.String("url", key), logger.String("canonical", canonical))
				return nil
			}

			created := domain.NewPage(*d, s.now())
			created.URL = key
			if err := s.persistPage(ctx, created); err != nil {
				return err
			}
			st.page = created
			page = copyPage(created)
			s.log.Info("page created", logger.String("url", key), logger.Bool("safe", created.IsSafe))
			return nil
		})
		if err != nil {
			return nil, err
		}

		if page != nil {
			s.warm(page)
			return page, nil
		}
		key, adopt = next, draft
	}
	return nil, fmt.Errorf("%w: alias chain for %s is too long", domain.ErrUnreachable, rawURL)
}

// Refresh re-extracts an existing Page. Counters and CreatedAt are kept.
func (s *Store) Refresh(ctx context.Context, rawURL string) (*domain.Page, error) {
	var page *domain.Page
	err := s.mutate(ctx, rawURL, func(ctx context.Context, st *state) (bool, error) {
		draft, err := s.extractor.Extract(ctx, st.page.URL)
		if err != nil {
			return false, err
		}
		draft.URL = st.page.URL

		next := st.page.Refreshed(*draft, s.now())
		if err := s.persistPage(ctx, next); err != nil {
			return false, err
		}
		st.page = next
		page = copyPage(next)
		return true, nil
	})
	return page, err
}

// View increments the view counter.
func (s *Store) View(ctx context.Context, rawURL string) error {
	return s.mutate(ctx, rawURL, func(ctx context.Context, st *state) (bool, error) {
		n := st.page.ViewCount + 1
		if err := s.kv.Set(ctx, namespace(st.page.URL)+keyViews, strconv.FormatInt(n, 10)); err != nil {
			return false, err
		}
		st.page.ViewCount = n
		return true, nil
	})
}

// Bookmark adds userID to the page's bookmarkers. It is a no-op when the
// user is already there.
func (s *Store) Bookmark(ctx context.Context, userID, rawURL string) error {
	return s.setBookmarks(ctx, rawURL, func(ids []string) ([]string, bool) {
		return domain.AppendUnique(ids, userID)
	})
}

// Unbookmark removes userID from the page's bookmarkers, if present.
func (s *Store) Unbookmark(ctx context.Context, userID, rawURL string) error {
	return s.setBookmarks(ctx, rawURL, func(ids []string) ([]string, bool) {
		if !domain.Contains(ids, userID) {
			return ids, false
		}
		return domain.Remove(ids, userID), true
	})
}

func (s *Store) setBookmarks(ctx context.Context, rawURL string, change func([]string) ([]string, bool)) error {
	return s.mutate(ctx, rawURL, func(ctx context.Context, st *state) (bool, error) {
		ids, changed := change(st.page.BookmarkUserIDs)
		if !changed {
			return false, nil
		}
		raw, err := kv.Marshal(ids)
		if err != nil {
			return false, err
		}
		if err := s.kv.Set(ctx, namespace(st.page.URL)+keyBookmarks, raw); err != nil {
			return false, err
		}
		st.page.BookmarkUserIDs = ids
		return true, nil
	})
}

// Backup dumps the raw state of the actor keyed by url. Aliases are not
// followed: the dump of an aliased URL holds only its alias.
func (s *Store) Backup(ctx context.Context, rawURL string) (map[string]string, error) {
	key, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	var dump map[string]string
	err = s.sys.Process(ctx, key, func(ctx context.Context, _ *state) error {
		d, err := kv.Dump(ctx, s.kv, namespace(key))
		dump = d
		return err
	})
	return dump, err
}

// Restore replaces the raw state of the actor keyed by url and reloads it.
func (s *Store) Restore(ctx context.Context, rawURL string, dump map[string]string) error {
	key, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	if err := kv.ValidateDump(dump); err != nil {
		return err
	}
	if _, err := decode(key, dump); err != nil {
		return err
	}
	if alias, ok := dump[keyAlias]; ok {
		if _, err := domain.NormalizeURL(alias); err != nil {
			return fmt.Errorf("%w: key %q: %v", domain.ErrRestoreFailed, keyAlias, err)
		}
	}

	err = s.sys.Reload(ctx, key, func(ctx context.Context) error {
		return kv.Restore(ctx, s.kv, namespace(key), dump)
	})
	if err != nil {
		return err
	}
	s.log.Info("page restored", logger.String("url", key), logger.Int("keys", len(dump)))
	s.invalidate(key)
	return nil
}

// onPage runs op on the actor holding the Page for key, following aliases.
// It fails with ErrNotFound when no Page exists.
func (s *Store) onPage(ctx context.Context, key string, op func(ctx context.Context, st *state) error) error {
	for hop := 0; hop <= maxAliasHops; hop++ {
		var next string
		found := false
		err := s.sys.Process(ctx, key, func(ctx context.Context, st *state) error {
			if st.page != nil {
				found = true
				return op(ctx, st)
			}
			next = st.alias
			return nil
		})
		if err != nil || found {
			return err
		}
		if next == "" {
			break
		}
		key = next
	}
	return fmt.Errorf("page %s: %w", key, domain.ErrNotFound)
}

// mutate runs op against an existing Page and invalidates its cache entry
// when op reports a change.
func (s *Store) mutate(ctx context.Context, rawURL string, op func(ctx context.Context, st *state) (bool, error)) error {
	key, err := domain.NormalizeURL(rawURL)
	if err != nil {
		return err
	}
	var changed bool
	var canonical string
	err = s.onPage(ctx, key, func(ctx context.Context, st *state) error {
		canonical = st.page.URL
		ok, err := op(ctx, st)
		changed = ok
		return err
	})
	if err != nil {
		return err
	}
	if changed {
		s.invalidate(canonical)
	}
	return nil
}

func (s *Store) warm(page *domain.Page) {
	s.bg.Go("warm page "+page.URL, func(ctx context.Context) error {
		return cache.SetJSON(ctx, s.cache, cache.PageKey(page.URL), page)
	})
}

func (s *Store) invalidate(url string) {
	s.bg.Go("invalidate page "+url, func(ctx context.Context) error {
		return s.cache.Invalidate(ctx, cache.PageKey(url))
	})
}

func copyPage(p *domain.Page) *domain.Page {
	if p == nil {
		return nil
	}
	c := *p
	c.BookmarkUserIDs = append([]string{}, p.BookmarkUserIDs...)
	c.Manifest = append([]string(nil), p.Manifest...)
	c.ConfigFiles = append([]string(nil), p.ConfigFiles...)
	c.Integrations = append([]string(nil), p.Integrations...)
	return &c
}
