// Package users owns user profiles and their bookmark and view history,
// one actor per user id.
package users

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/linkdex/internal/actor"
	"github.com/MrSnakeDoc/linkdex/internal/cache"
	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
)

const (
	keyProfile    = "profile"
	keyBookmarked = "bookmarkedIds"
	keyViewed     = "viewedIds"
)

// Store is the User Store.
type Store struct {
	kv    kv.Store
	cache cache.Cache
	bg    *actor.Background
	sys   *actor.System[domain.User]
	log   logger.Logger
	now   func() time.Time
}

// New creates a User Store.
func New(store kv.Store, c cache.Cache, bg *actor.Background, idle time.Duration, log logger.Logger) *Store {
	s := &Store{
		kv:    store,
		cache: c,
		bg:    bg,
		log:   log.With(logger.String("store", "users")),
		now:   time.Now,
	}
	s.sys = actor.NewSystem(actor.Options{Name: "users", IdleTimeout: idle}, s.load, bg, log)
	return s
}

// Close stops every user actor.
func (s *Store) Close() { s.sys.Close() }

// Live returns the number of running user actors.
func (s *Store) Live() int { return s.sys.Live() }

func namespace(id string) string { return kv.Namespace("user", id) }

func (s *Store) load(ctx context.Context, id string) (*domain.User, error) {
	entries, err := kv.Dump(ctx, s.kv, namespace(id))
	if err != nil {
		return nil, err
	}
	return decode(entries)
}

// decode rebuilds a user from raw entries. A user without a profile has
// an empty Profile.ID.
func decode(entries map[string]string) (*domain.User, error) {
	u := &domain.User{BookmarkedIDs: []string{}, ViewedIDs: []string{}}
	if raw, ok := entries[keyProfile]; ok {
		if err := kv.ValidateJSON(keyProfile, raw, &u.Profile); err != nil {
			return nil, err
		}
		if u.Profile.ID == "" {
			return nil, fmt.Errorf("%w: key %q: profile without id", domain.ErrRestoreFailed, keyProfile)
		}
	}
	for key, dst := range map[string]*[]string{keyBookmarked: &u.BookmarkedIDs, keyViewed: &u.ViewedIDs} {
		raw, ok := entries[key]
		if !ok {
			continue
		}
		var ids []string
		if err := kv.ValidateJSON(key, raw, &ids); err != nil {
			return nil, err
		}
		for _, id := range ids {
			*dst, _ = domain.AppendUnique(*dst, id)
		}
	}
	return u, nil
}

// Get returns the user, or nil when no profile was ever stored.
func (s *Store) Get(ctx context.Context, id string) (*domain.User, error) {
	return cache.GetOrLoad(ctx, s.cache, cache.UserKey(id), func(ctx context.Context) (*domain.User, error) {
		var user *domain.User
		err := s.sys.Process(ctx, id, func(_ context.Context, u *domain.User) error {
			if u.Profile.ID != "" {
				user = copyUser(u)
			}
			return nil
		})
		return user, err
	})
}

// UpdateProfile creates or updates the profile of p.ID. The original
// CreatedAt is kept.
func (s *Store) UpdateProfile(ctx context.Context, p domain.Profile) (*domain.Profile, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("%w: profile without id", domain.ErrInvalidInput)
	}

	var out domain.Profile
	err := s.sys.Process(ctx, p.ID, func(ctx context.Context, u *domain.User) error {
		if u.Profile.ID != "" && u.Profile.ID != p.ID {
			return fmt.Errorf("user %s holds profile %s: %w", p.ID, u.Profile.ID, domain.ErrIdentityMismatch)
		}

		now := s.now()
		next := p
		next.CreatedAt = now
		if u.Profile.ID != "" {
			next.CreatedAt = u.Profile.CreatedAt
		}
		next.UpdatedAt = now

		if err := kv.SetJSON(ctx, s.kv, namespace(p.ID)+keyProfile, next); err != nil {
			return err
		}
		u.Profile = next
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(p.ID)
	return &out, nil
}

// View moves resourceID to the front of the user's history.
func (s *Store) View(ctx context.Context, userID, resourceID string) error {
	return s.mutate(ctx, userID, keyViewed, func(u *domain.User) *[]string { return &u.ViewedIDs },
		func(ids []string) ([]string, bool) {
			if len(ids) > 0 && ids[0] == resourceID {
				return ids, false
			}
			return domain.MoveToFront(ids, resourceID), true
		})
}

// Bookmark records resourceID in the user's bookmarks, newest first.
func (s *Store) Bookmark(ctx context.Context, userID, resourceID string) error {
	return s.mutate(ctx, userID, keyBookmarked, func(u *domain.User) *[]string { return &u.BookmarkedIDs },
		func(ids []string) ([]string, bool) {
			return domain.PrependUnique(ids, resourceID)
		})
}

// Unbookmark drops resourceID from the user's bookmarks, if present.
func (s *Store) Unbookmark(ctx context.Context, userID, resourceID string) error {
	return s.mutate(ctx, userID, keyBookmarked, func(u *domain.User) *[]string { return &u.BookmarkedIDs },
		func(ids []string) ([]string, bool) {
			if !domain.Contains(ids, resourceID) {
				return ids, false
			}
			return domain.Remove(ids, resourceID), true
		})
}

// mutate applies change to one id list of userID. The user must have a
// profile whose id matches the actor's key.
func (s *Store) mutate(ctx context.Context, userID, key string, field func(*domain.User) *[]string, change func([]string) ([]string, bool)) error {
	var changed bool
	err := s.sys.Process(ctx, userID, func(ctx context.Context, u *domain.User) error {
		if u.Profile.ID == "" {
			return fmt.Errorf("user %s: %w", userID, domain.ErrNotFound)
		}
		if u.Profile.ID != userID {
			return fmt.Errorf("user %s holds profile %s: %w", userID, u.Profile.ID, domain.ErrIdentityMismatch)
		}

		ids := field(u)
		next, ok := change(*ids)
		if !ok {
			return nil
		}
		raw, err := kv.Marshal(next)
		if err != nil {
			return err
		}
		if err := s.kv.Set(ctx, namespace(userID)+key, raw); err != nil {
			return err
		}
		*ids = next
		changed = true
		return nil
	})
	if err != nil {
		return err
	}
	if changed {
		s.invalidate(userID)
	}
	return nil
}

// Backup dumps the raw state of userID.
func (s *Store) Backup(ctx context.Context, userID string) (map[string]string, error) {
	var dump map[string]string
	err := s.sys.Process(ctx, userID, func(ctx context.Context, _ *domain.User) error {
		d, err := kv.Dump(ctx, s.kv, namespace(userID))
		dump = d
		return err
	})
	return dump, err
}

// Restore replaces the raw state of userID and reloads its actor.
func (s *Store) Restore(ctx context.Context, userID string, dump map[string]string) error {
	if err := kv.ValidateDump(dump); err != nil {
		return err
	}
	if _, err := decode(dump); err != nil {
		return err
	}

	err := s.sys.Reload(ctx, userID, func(ctx context.Context) error {
		return kv.Restore(ctx, s.kv, namespace(userID), dump)
	})
	if err != nil {
		return err
	}
	s.log.Info("user restored", logger.String("user", userID), logger.Int("keys", len(dump)))
	s.invalidate(userID)
	return nil
}

func (s *Store) invalidate(id string) {
	s.bg.Go("invalidate user "+id, func(ctx context.Context) error {
		return s.cache.Invalidate(ctx, cache.UserKey(id))
	})
}

func copyUser(u *domain.User) *domain.User {
	return &domain.User{
		Profile:       u.Profile,
		BookmarkedIDs: append([]string{}, u.BookmarkedIDs...),
		ViewedIDs:     append([]string{}, u.ViewedIDs...),
	}
}
