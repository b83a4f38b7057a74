package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdex/internal/actor"
	"github.com/MrSnakeDoc/linkdex/internal/cache"
	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
)

func newTestStore(t *testing.T) (*Store, *actor.Background) {
	t.Helper()
	bg := actor.NewBackground(logger.Nop())
	s := New(kv.NewMemory(), cache.NewMemory(16, time.Minute), bg, 0, logger.Nop())
	s.now = func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }
	t.Cleanup(func() {
		bg.Wait()
		s.Close()
	})
	return s, bg
}

func withProfile(t *testing.T, s *Store, id string) {
	t.Helper()
	_, err := s.UpdateProfile(context.Background(), domain.Profile{ID: id, Name: "Ann", Email: "ann@x.test"})
	require.NoError(t, err)
}

func TestGet_UnknownUserIsNil(t *testing.T) {
	s, _ := newTestStore(t)

	u, err := s.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUpdateProfile_KeepsCreatedAt(t *testing.T) {
	s, bg := newTestStore(t)
	ctx := context.Background()

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }
	first, err := s.UpdateProfile(ctx, domain.Profile{ID: "u1", Name: "Ann"})
	require.NoError(t, err)

	t1 := t0.Add(time.Hour)
	s.now = func() time.Time { return t1 }
	second, err := s.UpdateProfile(ctx, domain.Profile{ID: "u1", Name: "Ann B", CreatedAt: t1})
	require.NoError(t, err)
	bg.Wait()

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, t1, second.UpdatedAt)

	u, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann B", u.Profile.Name)
	assert.Equal(t, t0, u.Profile.CreatedAt)
}

func TestUpdateProfile_RequiresID(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.UpdateProfile(context.Background(), domain.Profile{Name: "Ann"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMutationsWithoutProfile(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.View(ctx, "u1", "r1"), domain.ErrNotFound)
	assert.ErrorIs(t, s.Bookmark(ctx, "u1", "r1"), domain.ErrNotFound)
	assert.ErrorIs(t, s.Unbookmark(ctx, "u1", "r1"), domain.ErrNotFound)
}

func TestView_MovesToFront(t *testing.T) {
	s, bg := newTestStore(t)
	ctx := context.Background()
	withProfile(t, s, "u1")

	for _, id := range []string{"r1", "r2", "r1", "r1", "r1"} {
		require.NoError(t, s.View(ctx, "u1", id))
	}
	bg.Wait()

	u, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, u.ViewedIDs)
}

func TestBookmarkToggle(t *testing.T) {
	s, bg := newTestStore(t)
	ctx := context.Background()
	withProfile(t, s, "u1")

	require.NoError(t, s.Bookmark(ctx, "u1", "r1"))
	require.NoError(t, s.Bookmark(ctx, "u1", "r2"))
	require.NoError(t, s.Unbookmark(ctx, "u1", "r1"))
	require.NoError(t, s.Bookmark(ctx, "u1", "r1"))
	require.NoError(t, s.Bookmark(ctx, "u1", "r1"))
	require.NoError(t, s.Unbookmark(ctx, "u1", "r9"))
	bg.Wait()

	u, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, u.BookmarkedIDs)
}

func TestIdentityMismatch(t *testing.T) {
	s, bg := newTestStore(t)
	ctx := context.Background()
	withProfile(t, s, "u2")

	dump, err := s.Backup(ctx, "u2")
	require.NoError(t, err)

	// u1's actor now holds u2's profile: every call to it is misrouted.
	require.NoError(t, s.Restore(ctx, "u1", dump))
	bg.Wait()

	assert.ErrorIs(t, s.View(ctx, "u1", "r1"), domain.ErrIdentityMismatch)
	assert.ErrorIs(t, s.Bookmark(ctx, "u1", "r1"), domain.ErrIdentityMismatch)
	_, err = s.UpdateProfile(ctx, domain.Profile{ID: "u1"})
	assert.ErrorIs(t, err, domain.ErrIdentityMismatch)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	s, bg := newTestStore(t)
	ctx := context.Background()
	withProfile(t, s, "u1")
	require.NoError(t, s.Bookmark(ctx, "u1", "r1"))
	require.NoError(t, s.View(ctx, "u1", "r2"))
	bg.Wait()

	before, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	dump, err := s.Backup(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, dump, 3)

	require.NoError(t, s.Unbookmark(ctx, "u1", "r1"))
	require.NoError(t, s.View(ctx, "u1", "r3"))
	require.NoError(t, s.Restore(ctx, "u1", dump))
	bg.Wait()

	after, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRestore_RejectsMalformedPayload(t *testing.T) {
	s, _ := newTestStore(t)

	tests := map[string]map[string]string{
		"nil":               nil,
		"profile not json":  {"profile": "nope"},
		"profile no id":     {"profile": `{"name":"Ann"}`},
		"ids not a list":    {"viewedIds": `"r1"`},
		"bookmarks numbers": {"bookmarkedIds": `[1,2]`},
	}
	for name, dump := range tests {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Restore(context.Background(), "u1", dump), domain.ErrRestoreFailed)
		})
	}
}

func TestRestore_RepairsUndecodableState(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	bg := actor.NewBackground(logger.Nop())
	s := New(store, cache.NewMemory(16, time.Minute), bg, 0, logger.Nop())
	t.Cleanup(func() {
		bg.Wait()
		s.Close()
	})

	require.NoError(t, store.Set(ctx, namespace("u1")+keyProfile, "{broken"))
	_, err := s.Get(ctx, "u1")
	require.Error(t, err)

	dump := map[string]string{
		keyProfile:    `{"id":"u1","name":"Ann"}`,
		keyBookmarked: `["r1"]`,
	}
	require.NoError(t, s.Restore(ctx, "u1", dump))
	bg.Wait()

	u, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Ann", u.Profile.Name)
	assert.Equal(t, []string{"r1"}, u.BookmarkedIDs)
}
