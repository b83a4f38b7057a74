// Package guides owns curated guides: named lists of bookmarks, one actor
// per guide.
//
// A guide keeps both directions of list membership: List.BookmarkIDs and
// GuideBookmark.Lists. Every operation updates both in the same write.
package guides

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/linkdex/internal/actor"
	"github.com/MrSnakeDoc/linkdex/internal/cache"
	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/integrations"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
)

const (
	prefixList     = "list:"
	prefixBookmark = "bookmark:"
	keyPackages    = "packages"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Pages is the part of the Page Store used by guides.
type Pages interface {
	GetOrCreate(ctx context.Context, url string) (*domain.Page, error)
	Get(ctx context.Context, url string) (*domain.Page, error)
}

type state struct {
	lists     map[string]*domain.List
	bookmarks map[string]*domain.GuideBookmark
	byURL     map[string]string

	// packages are the titles of package bookmarks, in insertion order.
	packages []string
}

// Store is the Guide Store.
type Store struct {
	kv     kv.Store
	pages  Pages
	table  *integrations.Table
	cache  cache.Cache
	bg     *actor.Background
	sys    *actor.System[state]
	log    logger.Logger
	now    func() time.Time
	nextID func() string
}

// New creates a Guide Store.
func New(store kv.Store, pages Pages, table *integrations.Table, c cache.Cache, bg *actor.Background, idle time.Duration, log logger.Logger) *Store {
	s := &Store{
		kv:     store,
		pages:  pages,
		table:  table,
		cache:  c,
		bg:     bg,
		log:    log.With(logger.String("store", "guides")),
		now:    time.Now,
		nextID: uuid.NewString,
	}
	s.sys = actor.NewSystem(actor.Options{Name: "guides", IdleTimeout: idle}, s.load, bg, log)
	return s
}

// Close stops every guide actor.
func (s *Store) Close() { s.sys.Close() }

// Live returns the number of running guide actors.
func (s *Store) Live() int { return s.sys.Live() }

func namespace(guideID string) string { return kv.Namespace("guide", guideID) }

func (s *Store) load(ctx context.Context, guideID string) (*state, error) {
	entries, err := kv.Dump(ctx, s.kv, namespace(guideID))
	if err != nil {
		return nil, err
	}
	st, err := decode(entries)
	if err != nil {
		return nil, err
	}
	if fixed := st.reconcile(); fixed > 0 {
		s.log.Warn("dangling list memberships dropped", logger.String("guide", guideID), logger.Int("count", fixed))
	}
	return st, nil
}

func decode(entries map[string]string) (*state, error) {
	st := &state{
		lists:     make(map[string]*domain.List),
		bookmarks: make(map[string]*domain.GuideBookmark),
		byURL:     make(map[string]string),
		packages:  []string{},
	}
	for key, raw := range entries {
		switch {
		case strings.HasPrefix(key, prefixList):
			var l domain.List
			if err := kv.ValidateJSON(key, raw, &l); err != nil {
				return nil, err
			}
			if l.Slug != strings.TrimPrefix(key, prefixList) {
				return nil, fmt.Errorf("%w: key %q holds list %q", domain.ErrRestoreFailed, key, l.Slug)
			}
			if l.BookmarkIDs == nil {
				l.BookmarkIDs = []string{}
			}
			st.lists[l.Slug] = &l
		case strings.HasPrefix(key, prefixBookmark):
			var b domain.GuideBookmark
			if err := kv.ValidateJSON(key, raw, &b); err != nil {
				return nil, err
			}
			if b.ID != strings.TrimPrefix(key, prefixBookmark) || b.URL == "" {
				return nil, fmt.Errorf("%w: key %q holds bookmark %q", domain.ErrRestoreFailed, key, b.ID)
			}
			if b.Lists == nil {
				b.Lists = []string{}
			}
			st.bookmarks[b.ID] = &b
			st.byURL[b.URL] = b.ID
		case key == keyPackages:
			if err := kv.ValidateJSON(key, raw, &st.packages); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: unexpected key %q", domain.ErrRestoreFailed, key)
		}
	}
	return st, nil
}

// reconcile drops memberships recorded on one side only and returns how
// many were dropped.
func (st *state) reconcile() int {
	fixed := 0
	for _, l := range st.lists {
		keep := make([]string, 0, len(l.BookmarkIDs))
		for _, id := range l.BookmarkIDs {
			if b, ok := st.bookmarks[id]; ok && domain.Contains(b.Lists, l.Slug) && !domain.Contains(keep, id) {
				keep = append(keep, id)
				continue
			}
			fixed++
		}
		l.BookmarkIDs = keep
	}
	for _, b := range st.bookmarks {
		keep := make([]string, 0, len(b.Lists))
		for _, slug := range b.Lists {
			if l, ok := st.lists[slug]; ok && domain.Contains(l.BookmarkIDs, b.ID) && !domain.Contains(keep, slug) {
				keep = append(keep, slug)
				continue
			}
			fixed++
		}
		b.Lists = keep
	}
	return fixed
}

// Get returns the guide summary. A guide with no data is empty, not missing.
func (s *Store) Get(ctx context.Context, guideID string) (*domain.Guide, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.GuideKey(guideID), func(ctx context.Context) (*domain.Guide, error) {
		g := &domain.Guide{ID: guideID}
		err := s.sys.Process(ctx, guideID, func(_ context.Context, st *state) error {
			g.Lists = sortedLists(st.lists)
			g.Bookmarks = len(st.bookmarks)
			return nil
		})
		return g, err
	})
}

// Bookmarks lists the bookmarks of one list, in list order, or of the
// whole guide, newest first, when listSlug is empty. Each is joined with
// its page and tagged.
func (s *Store) Bookmarks(ctx context.Context, guideID, listSlug string) ([]*domain.BookmarkView, error) {
	var selected []domain.GuideBookmark
	var packages []string
	err := s.sys.Process(ctx, guideID, func(_ context.Context, st *state) error {
		packages = append([]string(nil), st.packages...)
		if listSlug == "" {
			for _, b := range st.bookmarks {
				selected = append(selected, copyBookmark(b))
			}
			sort.Slice(selected, func(i, j int) bool {
				if !selected[i].Timestamp.Equal(selected[j].Timestamp) {
					return selected[i].Timestamp.After(selected[j].Timestamp)
				}
				return selected[i].ID < selected[j].ID
			})
			return nil
		}
		l, ok := st.lists[listSlug]
		if !ok {
			return fmt.Errorf("list %s: %w", listSlug, domain.ErrNotFound)
		}
		for _, id := range l.BookmarkIDs {
			selected = append(selected, copyBookmark(st.bookmarks[id]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	views := make([]*domain.BookmarkView, 0, len(selected))
	for _, b := range selected {
		v := &domain.BookmarkView{GuideBookmark: b, Tags: []string{}}
		page, err := s.pages.Get(ctx, b.URL)
		if err != nil {
			return nil, err
		}
		if page != nil {
			v.Title = page.Title
			v.Description = page.Description
			v.Category = page.Category
			v.Author = page.Author
			v.Tags = s.table.Derive(&page.PageDraft, packages)
		}
		views = append(views, v)
	}
	return views, nil
}

// CreateBookmark adds url to the guide. Unsafe or malformed URLs yield
// StatusInvalid; a canonical URL already in the guide yields
// StatusResubmitted with the existing id.
func (s *Store) CreateBookmark(ctx context.Context, guideID, rawURL string) (domain.SubmitResult, error) {
	page, err := s.pages.GetOrCreate(ctx, rawURL)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return domain.SubmitResult{Status: domain.StatusInvalid}, nil
		}
		return domain.SubmitResult{}, err
	}
	if !page.IsSafe {
		return domain.SubmitResult{Status: domain.StatusInvalid}, nil
	}

	var result domain.SubmitResult
	err = s.sys.Process(ctx, guideID, func(ctx context.Context, st *state) error {
		if id, ok := st.byURL[page.URL]; ok {
			result = domain.SubmitResult{ID: id, Status: domain.StatusResubmitted}
			return nil
		}

		b := &domain.GuideBookmark{ID: s.nextID(), URL: page.URL, Lists: []string{}, Timestamp: s.now()}
		ns := namespace(guideID)
		writes := map[string]string{}
		if err := put(writes, ns+prefixBookmark+b.ID, b); err != nil {
			return err
		}
		packages := st.packages
		if page.Category == domain.CategoryPackage && page.Title != "" {
			var added bool
			if packages, added = domain.AppendUnique(packages, page.Title); added {
				if err := put(writes, ns+keyPackages, packages); err != nil {
					return err
				}
			}
		}
		if err := s.kv.SetMany(ctx, writes); err != nil {
			return err
		}

		st.bookmarks[b.ID] = b
		st.byURL[b.URL] = b.ID
		st.packages = packages
		result = domain.SubmitResult{ID: b.ID, Status: domain.StatusPublished}
		return nil
	})
	if err != nil {
		return domain.SubmitResult{}, err
	}
	if result.Status == domain.StatusPublished {
		s.log.Info("guide bookmark created", logger.String("guide", guideID), logger.String("bookmark", result.ID), logger.String("url", page.URL))
		s.invalidate(guideID)
	}
	return result, nil
}

// UpdateBookmark toggles the membership of bookmarkID in listSlug.
func (s *Store) UpdateBookmark(ctx context.Context, guideID, bookmarkID, listSlug string) (*domain.GuideBookmark, error) {
	var out domain.GuideBookmark
	err := s.mutate(ctx, guideID, func(ctx context.Context, st *state) error {
		b, ok := st.bookmarks[bookmarkID]
		if !ok {
			return fmt.Errorf("bookmark %s: %w", bookmarkID, domain.ErrNotFound)
		}
		l, ok := st.lists[listSlug]
		if !ok {
			return fmt.Errorf("list %s: %w", listSlug, domain.ErrNotFound)
		}

		nb, nl := copyBookmark(b), *l
		if domain.Contains(b.Lists, listSlug) {
			nb.Lists = domain.Remove(b.Lists, listSlug)
			nl.BookmarkIDs = domain.Remove(l.BookmarkIDs, bookmarkID)
		} else {
			nb.Lists, _ = domain.AppendUnique(b.Lists, listSlug)
			nl.BookmarkIDs, _ = domain.AppendUnique(l.BookmarkIDs, bookmarkID)
		}
		nl.UpdatedAt = s.now()

		ns := namespace(guideID)
		writes := map[string]string{}
		if err := put(writes, ns+prefixBookmark+nb.ID, nb); err != nil {
			return err
		}
		if err := put(writes, ns+prefixList+nl.Slug, nl); err != nil {
			return err
		}
		if err := s.kv.SetMany(ctx, writes); err != nil {
			return err
		}

		st.bookmarks[nb.ID] = &nb
		st.lists[nl.Slug] = &nl
		out = copyBookmark(&nb)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteBookmark removes bookmarkID and strips it from every list.
func (s *Store) DeleteBookmark(ctx context.Context, guideID, bookmarkID string) error {
	return s.mutate(ctx, guideID, func(ctx context.Context, st *state) error {
		b, ok := st.bookmarks[bookmarkID]
		if !ok {
			return fmt.Errorf("bookmark %s: %w", bookmarkID, domain.ErrNotFound)
		}

		ns := namespace(guideID)
		now := s.now()
		updated := make(map[string]*domain.List, len(b.Lists))
		writes := map[string]string{}
		for _, slug := range b.Lists {
			l, ok := st.lists[slug]
			if !ok {
				continue
			}
			nl := *l
			nl.BookmarkIDs = domain.Remove(l.BookmarkIDs, bookmarkID)
			nl.UpdatedAt = now
			if err := put(writes, ns+prefixList+slug, nl); err != nil {
				return err
			}
			updated[slug] = &nl
		}
		if len(writes) > 0 {
			if err := s.kv.SetMany(ctx, writes); err != nil {
				return err
			}
		}
		if err := s.kv.Delete(ctx, ns+prefixBookmark+bookmarkID); err != nil {
			return err
		}

		for slug, l := range updated {
			st.lists[slug] = l
		}
		delete(st.bookmarks, bookmarkID)
		delete(st.byURL, b.URL)
		return nil
	})
}

// CreateList adds an empty list. Slugs are lowercase words joined by dashes.
func (s *Store) CreateList(ctx context.Context, guideID, slug, title, description string) (*domain.List, error) {
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: slug %q", domain.ErrInvalidInput, slug)
	}

	var out domain.List
	err := s.mutate(ctx, guideID, func(ctx context.Context, st *state) error {
		if _, ok := st.lists[slug]; ok {
			return fmt.Errorf("list %s: %w", slug, domain.ErrAlreadyExists)
		}
		now := s.now()
		l := &domain.List{
			Slug:        slug,
			Title:       title,
			Description: description,
			BookmarkIDs: []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := kv.SetJSON(ctx, s.kv, namespace(guideID)+prefixList+slug, l); err != nil {
			return err
		}
		st.lists[slug] = l
		out = copyList(l)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateList changes the title and description of a list.
func (s *Store) UpdateList(ctx context.Context, guideID, slug, title, description string) (*domain.List, error) {
	var out domain.List
	err := s.mutate(ctx, guideID, func(ctx context.Context, st *state) error {
		l, ok := st.lists[slug]
		if !ok {
			return fmt.Errorf("list %s: %w", slug, domain.ErrNotFound)
		}
		nl := copyList(l)
		nl.Title = title
		nl.Description = description
		nl.UpdatedAt = s.now()
		if err := kv.SetJSON(ctx, s.kv, namespace(guideID)+prefixList+slug, nl); err != nil {
			return err
		}
		st.lists[slug] = &nl
		out = copyList(&nl)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteList removes a list and strips its slug from every bookmark.
func (s *Store) DeleteList(ctx context.Context, guideID, slug string) error {
	return s.mutate(ctx, guideID, func(ctx context.Context, st *state) error {
		l, ok := st.lists[slug]
		if !ok {
			return fmt.Errorf("list %s: %w", slug, domain.ErrNotFound)
		}

		ns := namespace(guideID)
		updated := make(map[string]*domain.GuideBookmark, len(l.BookmarkIDs))
		writes := map[string]string{}
		for _, id := range l.BookmarkIDs {
			b, ok := st.bookmarks[id]
			if !ok {
				continue
			}
			nb := copyBookmark(b)
			nb.Lists = domain.Remove(b.Lists, slug)
			if err := put(writes, ns+prefixBookmark+id, nb); err != nil {
				return err
			}
			updated[id] = &nb
		}
		if len(writes) > 0 {
			if err := s.kv.SetMany(ctx, writes); err != nil {
				return err
			}
		}
		if err := s.kv.Delete(ctx, ns+prefixList+slug); err != nil {
			return err
		}

		for id, b := range updated {
			st.bookmarks[id] = b
		}
		delete(st.lists, slug)
		return nil
	})
}

// Backup dumps the raw state of guideID.
func (s *Store) Backup(ctx context.Context, guideID string) (map[string]string, error) {
	var dump map[string]string
	err := s.sys.Process(ctx, guideID, func(ctx context.Context, _ *state) error {
		d, err := kv.Dump(ctx, s.kv, namespace(guideID))
		dump = d
		return err
	})
	return dump, err
}

// Restore replaces the raw state of guideID and reloads its actor. Dumps
// whose list memberships disagree are rejected.
func (s *Store) Restore(ctx context.Context, guideID string, dump map[string]string) error {
	if err := kv.ValidateDump(dump); err != nil {
		return err
	}
	st, err := decode(dump)
	if err != nil {
		return err
	}
	if n := st.reconcile(); n > 0 {
		return fmt.Errorf("%w: %d one-sided list memberships", domain.ErrRestoreFailed, n)
	}

	err = s.sys.Reload(ctx, guideID, func(ctx context.Context) error {
		return kv.Restore(ctx, s.kv, namespace(guideID), dump)
	})
	if err != nil {
		return err
	}
	s.log.Info("guide restored", logger.String("guide", guideID), logger.Int("keys", len(dump)))
	s.invalidate(guideID)
	return nil
}

// mutate runs op on guideID and invalidates the cached summary on success.
func (s *Store) mutate(ctx context.Context, guideID string, op actor.Op[state]) error {
	if err := s.sys.Process(ctx, guideID, op); err != nil {
		return err
	}
	s.invalidate(guideID)
	return nil
}

func (s *Store) invalidate(guideID string) {
	s.bg.Go("invalidate guide "+guideID, func(ctx context.Context) error {
		return s.cache.Invalidate(ctx, cache.GuideKey(guideID))
	})
}

func put(writes map[string]string, key string, v any) error {
	raw, err := kv.Marshal(v)
	if err != nil {
		return err
	}
	writes[key] = raw
	return nil
}

func sortedLists(lists map[string]*domain.List) []*domain.List {
	out := make([]*domain.List, 0, len(lists))
	for _, l := range lists {
		c := copyList(l)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Slug < out[j].Slug
	})
	return out
}

func copyList(l *domain.List) domain.List {
	c := *l
	c.BookmarkIDs = append([]string{}, l.BookmarkIDs...)
	return c
}

func copyBookmark(b *domain.GuideBookmark) domain.GuideBookmark {
	c := *b
	c.Lists = append([]string{}, b.Lists...)
	return c
}
