package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdex/internal/actor"
	"github.com/MrSnakeDoc/linkdex/internal/cache"
	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/extractor/extractortest"
	"github.com/MrSnakeDoc/linkdex/internal/index"
	"github.com/MrSnakeDoc/linkdex/internal/integrations"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
	"github.com/MrSnakeDoc/linkdex/internal/pages"
	"github.com/MrSnakeDoc/linkdex/internal/resources"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
	"github.com/MrSnakeDoc/linkdex/internal/users"
)

type fixture struct {
	*Catalog
	ex *extractortest.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := kv.NewMemory()
	bg := actor.NewBackground(logger.Nop())
	c := cache.NewMemory(64, time.Minute)
	ex := extractortest.New()
	idx := index.New(store)

	p := pages.New(store, ex, c, bg, 0, logger.Nop())
	r := resources.New(store, p, idx, integrations.Default(), c, bg, 0, logger.Nop())
	u := users.New(store, c, bg, 0, logger.Nop())
	t.Cleanup(func() {
		bg.Wait()
		r.Close()
		u.Close()
		p.Close()
	})

	for _, id := range []string{"u1", "u2"} {
		_, err := u.UpdateProfile(context.Background(), domain.Profile{ID: id, Name: id})
		require.NoError(t, err)
	}
	return &fixture{Catalog: New(p, r, u, idx, c, bg, logger.Nop()), ex: ex}
}

func (f *fixture) details(t *testing.T, id string) *domain.ResourceDetails {
	t.Helper()
	f.bg.Wait()
	d, err := f.resources.GetDetails(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func TestExampleScenario(t *testing.T) {
	f := newFixture(t)
	f.ex.Set("http://x.test/a", domain.PageDraft{Title: "foo", Category: domain.CategoryPackage, IsSafe: true})
	ctx := context.Background()

	first, err := f.Submit(ctx, "u1", "http://x.test/a")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPublished, first.Status)

	second, err := f.Submit(ctx, "u1", "http://x.test/a?ref=1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResubmitted, second.Status)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, 0, f.details(t, first.ID).Metadata.BookmarkCount)

	require.NoError(t, f.Bookmark(ctx, "u1", first.ID))
	assert.Equal(t, 1, f.details(t, first.ID).Metadata.BookmarkCount)
}

func TestBookmarkUnbookmarkBookmark(t *testing.T) {
	f := newFixture(t)
	f.ex.Set("http://x.test/a", domain.PageDraft{Title: "foo", IsSafe: true})
	ctx := context.Background()

	res, err := f.Submit(ctx, "u1", "http://x.test/a")
	require.NoError(t, err)

	require.NoError(t, f.Bookmark(ctx, "u1", res.ID))
	require.NoError(t, f.Unbookmark(ctx, "u1", res.ID))
	require.NoError(t, f.Bookmark(ctx, "u1", res.ID))

	assert.Equal(t, 1, f.details(t, res.ID).Metadata.BookmarkCount)
	u, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{res.ID}, u.BookmarkedIDs)
}

func TestViewThreeTimes(t *testing.T) {
	f := newFixture(t)
	f.ex.Set("http://x.test/a", domain.PageDraft{Title: "foo", IsSafe: true})
	f.ex.Set("http://x.test/b", domain.PageDraft{Title: "bar", IsSafe: true})
	ctx := context.Background()

	a, err := f.Submit(ctx, "u1", "http://x.test/a")
	require.NoError(t, err)
	b, err := f.Submit(ctx, "u1", "http://x.test/b")
	require.NoError(t, err)

	require.NoError(t, f.View(ctx, "u1", a.ID))
	require.NoError(t, f.View(ctx, "u1", b.ID))
	for i := 0; i < 3; i++ {
		require.NoError(t, f.View(ctx, "u1", a.ID))
	}
	require.NoError(t, f.View(ctx, "", a.ID))

	assert.Equal(t, int64(5), f.details(t, a.ID).Metadata.ViewCount)
	u, err := f.users.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, u.ViewedIDs)
}

func TestFlowsOnUnknownResource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.Bookmark(ctx, "u1", "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, f.Unbookmark(ctx, "u1", "missing"), domain.ErrNotFound)
	assert.ErrorIs(t, f.View(ctx, "u1", "missing"), domain.ErrNotFound)
	_, err := f.GetResource(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookmarkByUnknownUser(t *testing.T) {
	f := newFixture(t)
	f.ex.Set("http://x.test/a", domain.PageDraft{Title: "foo", IsSafe: true})
	ctx := context.Background()

	res, err := f.Submit(ctx, "u1", "http://x.test/a")
	require.NoError(t, err)

	assert.ErrorIs(t, f.Bookmark(ctx, "ghost", res.ID), domain.ErrNotFound)
	assert.Equal(t, 0, f.details(t, res.ID).Metadata.BookmarkCount, "page untouched when the user step fails")
}

func TestGetResource_ReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	f.ex.Set("http://x.test/a", domain.PageDraft{Title: "foo", IsSafe: true})
	ctx := context.Background()

	res, err := f.Submit(ctx, "u1", "http://x.test/a")
	require.NoError(t, err)
	f.bg.Wait()

	meta, err := f.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "foo", meta.Title)

	cached, ok, err := cache.GetJSON[domain.ResourceMetadata](ctx, f.cache, cache.ResourceKey(res.ID))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, meta.ID, cached.ID)
	assert.Equal(t, meta.Title, cached.Title)

	// A mutation invalidates the entry; the next read sees the new count.
	require.NoError(t, f.Bookmark(ctx, "u2", res.ID))
	f.bg.Wait()
	meta, err = f.GetResource(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, meta.BookmarkCount)
}

func TestPageChanged_ReprojectsOwningResource(t *testing.T) {
	f := newFixture(t)
	f.ex.Set("http://x.test/a", domain.PageDraft{Title: "foo", IsSafe: true})
	f.ex.Set("http://x.test/loose", domain.PageDraft{Title: "loose", IsSafe: true})
	ctx := context.Background()

	res, err := f.Submit(ctx, "u1", "http://x.test/a")
	require.NoError(t, err)
	f.bg.Wait()

	require.NoError(t, f.pages.Bookmark(ctx, "u2", "http://x.test/a"))
	require.NoError(t, f.pages.View(ctx, "http://x.test/a"))
	meta, ok := f.index.Get(res.ID)
	require.True(t, ok)
	assert.Equal(t, 0, meta.BookmarkCount, "direct page changes do not touch the listing")

	require.NoError(t, f.PageChanged(ctx, "http://x.test/a"))
	meta, ok = f.index.Get(res.ID)
	require.True(t, ok)
	assert.Equal(t, 1, meta.BookmarkCount)
	assert.Equal(t, int64(1), meta.ViewCount)

	_, err = f.pages.GetOrCreate(ctx, "http://x.test/loose")
	require.NoError(t, err)
	assert.NoError(t, f.PageChanged(ctx, "http://x.test/loose"), "a page without a resource has nothing to reproject")
	assert.NoError(t, f.PageChanged(ctx, "http://nope.test/"))
}
