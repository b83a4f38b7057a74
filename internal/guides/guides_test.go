package guides

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdex/internal/actor"
	"github.com/MrSnakeDoc/linkdex/internal/cache"
	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/extractor/extractortest"
	"github.com/MrSnakeDoc/linkdex/internal/integrations"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
	"github.com/MrSnakeDoc/linkdex/internal/pages"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
)

const guide = "g1"

type fixture struct {
	store *Store
	ex    *extractortest.Fake
	kv    *kv.Memory
	bg    *actor.Background
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ex: extractortest.New(),
		kv: kv.NewMemory(),
		bg: actor.NewBackground(logger.Nop()),
	}
	c := cache.NewMemory(64, time.Minute)
	p := pages.New(f.kv, f.ex, c, f.bg, 0, logger.Nop())
	f.store = New(f.kv, p, integrations.Default(), c, f.bg, 0, logger.Nop())

	var mu sync.Mutex
	var n int
	f.store.nextID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("b%d", n)
	}
	tick := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	f.store.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}

	t.Cleanup(func() {
		f.bg.Wait()
		f.store.Close()
		p.Close()
	})
	return f
}

func (f *fixture) bookmark(t *testing.T, url string) string {
	t.Helper()
	f.ex.Set(url, domain.PageDraft{Title: url, IsSafe: true})
	res, err := f.store.CreateBookmark(context.Background(), guide, url)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPublished, res.Status)
	return res.ID
}

func (f *fixture) list(t *testing.T, slug string) {
	t.Helper()
	_, err := f.store.CreateList(context.Background(), guide, slug, slug, "")
	require.NoError(t, err)
}

// assertConsistent checks that both directions of list membership agree.
func assertConsistent(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.store.sys.Process(context.Background(), guide, func(_ context.Context, st *state) error {
		for slug, l := range st.lists {
			for _, id := range l.BookmarkIDs {
				b, ok := st.bookmarks[id]
				if assert.True(t, ok, "list %s references missing bookmark %s", slug, id) {
					assert.Contains(t, b.Lists, slug)
				}
			}
		}
		for id, b := range st.bookmarks {
			for _, slug := range b.Lists {
				l, ok := st.lists[slug]
				if assert.True(t, ok, "bookmark %s references missing list %s", id, slug) {
					assert.Contains(t, l.BookmarkIDs, id)
				}
			}
		}
		return nil
	}))
}

func TestCreateBookmark_Dedup(t *testing.T) {
	f := newFixture(t)
	f.ex.Set("http://x.test/a", domain.PageDraft{Title: "foo", Category: domain.CategoryPackage, IsSafe: true})
	f.ex.Set("http://bad.test/", domain.PageDraft{Title: "bad"})
	ctx := context.Background()

	first, err := f.store.CreateBookmark(ctx, guide, "http://x.test/a")
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitResult{ID: "b1", Status: domain.StatusPublished}, first)

	again, err := f.store.CreateBookmark(ctx, guide, "http://x.test/a#install")
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitResult{ID: "b1", Status: domain.StatusResubmitted}, again)

	unsafe, err := f.store.CreateBookmark(ctx, guide, "http://bad.test/")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInvalid, unsafe.Status)

	other, err := f.store.CreateBookmark(ctx, "g2", "http://x.test/a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, other.Status, "dedup is per guide")
}

func TestListLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.store.CreateList(ctx, guide, "tools", "Tools", "Handy")
	require.NoError(t, err)
	assert.Equal(t, "Tools", l.Title)
	assert.Empty(t, l.BookmarkIDs)

	_, err = f.store.CreateList(ctx, guide, "tools", "Again", "")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = f.store.CreateList(ctx, guide, "Not A Slug", "x", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	updated, err := f.store.UpdateList(ctx, guide, "tools", "Dev tools", "Sharp")
	require.NoError(t, err)
	assert.Equal(t, "Dev tools", updated.Title)
	assert.Equal(t, l.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(l.UpdatedAt))

	_, err = f.store.UpdateList(ctx, guide, "missing", "x", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.store.DeleteList(ctx, guide, "missing"), domain.ErrNotFound)
}

func TestUpdateBookmark_Toggles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.bookmark(t, "http://x.test/a")
	f.list(t, "tools")

	b, err := f.store.UpdateBookmark(ctx, guide, id, "tools")
	require.NoError(t, err)
	assert.Equal(t, []string{"tools"}, b.Lists)
	assertConsistent(t, f)

	b, err = f.store.UpdateBookmark(ctx, guide, id, "tools")
	require.NoError(t, err)
	assert.Empty(t, b.Lists)
	assertConsistent(t, f)

	_, err = f.store.UpdateBookmark(ctx, guide, "nope", "tools")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.store.UpdateBookmark(ctx, guide, id, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteList_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.bookmark(t, "http://x.test/a")
	b := f.bookmark(t, "http://x.test/b")
	f.list(t, "one")
	f.list(t, "two")
	for _, id := range []string{a, b} {
		for _, slug := range []string{"one", "two"} {
			_, err := f.store.UpdateBookmark(ctx, guide, id, slug)
			require.NoError(t, err)
		}
	}

	require.NoError(t, f.store.DeleteList(ctx, guide, "one"))
	assertConsistent(t, f)

	views, err := f.store.Bookmarks(ctx, guide, "")
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, []string{"two"}, v.Lists)
	}
	_, err = f.store.Bookmarks(ctx, guide, "one")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteBookmark_Cascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.bookmark(t, "http://x.test/a")
	b := f.bookmark(t, "http://x.test/b")
	f.list(t, "one")
	f.list(t, "two")
	for _, slug := range []string{"one", "two"} {
		_, err := f.store.UpdateBookmark(ctx, guide, a, slug)
		require.NoError(t, err)
		_, err = f.store.UpdateBookmark(ctx, guide, b, slug)
		require.NoError(t, err)
	}

	require.NoError(t, f.store.DeleteBookmark(ctx, guide, a))
	assertConsistent(t, f)
	assert.ErrorIs(t, f.store.DeleteBookmark(ctx, guide, a), domain.ErrNotFound)

	for _, slug := range []string{"one", "two"} {
		views, err := f.store.Bookmarks(ctx, guide, slug)
		require.NoError(t, err)
		require.Len(t, views, 1)
		assert.Equal(t, b, views[0].ID)
	}

	// The URL is free again once its bookmark is gone.
	res, err := f.store.CreateBookmark(ctx, guide, "http://x.test/a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, res.Status)
}

func TestGet_Summary(t *testing.T) {
	f := newFixture(t)
	f.bookmark(t, "http://x.test/a")
	f.list(t, "second")
	f.list(t, "first")
	f.bg.Wait()

	g, err := f.store.Get(context.Background(), guide)
	require.NoError(t, err)
	assert.Equal(t, guide, g.ID)
	assert.Equal(t, 1, g.Bookmarks)
	require.Len(t, g.Lists, 2)
	assert.Equal(t, "second", g.Lists[0].Slug, "lists come in creation order")

	empty, err := f.store.Get(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Bookmarks)
	assert.Empty(t, empty.Lists)
}

func TestBookmarks_TaggedWithGuidePackages(t *testing.T) {
	f := newFixture(t)
	f.ex.Set("https://www.npmjs.com/package/zustand", domain.PageDraft{Title: "zustand", Category: domain.CategoryPackage, IsSafe: true})
	f.ex.Set("http://blog.test/state", domain.PageDraft{Title: "State with Zustand and React", IsSafe: true})
	ctx := context.Background()

	_, err := f.store.CreateBookmark(ctx, guide, "https://www.npmjs.com/package/zustand")
	require.NoError(t, err)
	_, err = f.store.CreateBookmark(ctx, guide, "http://blog.test/state")
	require.NoError(t, err)

	views, err := f.store.Bookmarks(ctx, guide, "")
	require.NoError(t, err)
	require.Len(t, views, 2)

	blog := views[0]
	assert.Equal(t, "http://blog.test/state", blog.URL, "newest first")
	assert.Equal(t, "State with Zustand and React", blog.Title)
	assert.Equal(t, []string{"zustand", "react"}, blog.Tags)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.bookmark(t, "http://x.test/a")
	f.list(t, "one")
	_, err := f.store.UpdateBookmark(ctx, guide, a, "one")
	require.NoError(t, err)
	f.bg.Wait()

	before, err := f.store.Bookmarks(ctx, guide, "one")
	require.NoError(t, err)
	dump, err := f.store.Backup(ctx, guide)
	require.NoError(t, err)

	require.NoError(t, f.store.DeleteList(ctx, guide, "one"))
	f.bookmark(t, "http://x.test/b")
	require.NoError(t, f.store.Restore(ctx, guide, dump))
	f.bg.Wait()

	after, err := f.store.Bookmarks(ctx, guide, "one")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	g, err := f.store.Get(ctx, guide)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Bookmarks)
	assertConsistent(t, f)
}

func TestRestore_RejectsMalformedPayload(t *testing.T) {
	f := newFixture(t)

	tests := map[string]map[string]string{
		"nil":              nil,
		"unknown key":      {"other": "x"},
		"list not json":    {"list:one": "["},
		"list under slug":  {"list:one": `{"slug":"two"}`},
		"bookmark no url":  {"bookmark:b1": `{"id":"b1"}`},
		"packages object":  {"packages": `{}`},
		"one-sided member": {"list:one": `{"slug":"one","bookmarkIds":["b1"]}`, "bookmark:b1": `{"id":"b1","url":"http://x.test/","lists":[]}`},
	}
	for name, dump := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, f.store.Restore(context.Background(), guide, dump), domain.ErrRestoreFailed)
		})
	}
}

func TestRestore_RepairsUndecodableState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.bookmark(t, "http://x.test/a")
	f.list(t, "one")
	_, err := f.store.UpdateBookmark(ctx, guide, a, "one")
	require.NoError(t, err)
	f.bg.Wait()

	dump, err := f.store.Backup(ctx, guide)
	require.NoError(t, err)

	require.NoError(t, f.kv.Set(ctx, namespace("g2")+prefixList+"one", `{"slug":"two"}`))
	_, err = f.store.Get(ctx, "g2")
	require.Error(t, err)

	require.NoError(t, f.store.Restore(ctx, "g2", dump))
	f.bg.Wait()

	g, err := f.store.Get(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, 1, g.Bookmarks)
	require.Len(t, g.Lists, 1)
	assert.Equal(t, "one", g.Lists[0].Slug)
}
