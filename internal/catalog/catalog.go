// Package catalog runs the flows that touch several stores: submission,
// bookmarking, views and resource reads.
//
// Flows are ordered sequences of idempotent single-actor calls, never a
// transaction. A failure part way leaves each store self-consistent and
// the same call can simply be retried.
package catalog

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/linkdex/internal/actor"
	"github.com/MrSnakeDoc/linkdex/internal/cache"
	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/index"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
	"github.com/MrSnakeDoc/linkdex/internal/pages"
	"github.com/MrSnakeDoc/linkdex/internal/resources"
	"github.com/MrSnakeDoc/linkdex/internal/users"
)

// Catalog wires the stores together.
type Catalog struct {
	pages     *pages.Store
	resources *resources.Store
	users     *users.Store
	index     *index.Index
	cache     cache.Cache
	bg        *actor.Background
	log       logger.Logger
}

// New creates a Catalog.
func New(p *pages.Store, r *resources.Store, u *users.Store, idx *index.Index, c cache.Cache, bg *actor.Background, log logger.Logger) *Catalog {
	return &Catalog{
		pages:     p,
		resources: r,
		users:     u,
		index:     idx,
		cache:     c,
		bg:        bg,
		log:       log.With(logger.String("component", "catalog")),
	}
}

// Submit publishes url for userID. See resources.Store.Submit.
func (c *Catalog) Submit(ctx context.Context, userID, url string) (domain.SubmitResult, error) {
	return c.resources.Submit(ctx, userID, url)
}

// Bookmark records that userID bookmarked resourceID: first on the user,
// then on the page, then in the listing record.
func (c *Catalog) Bookmark(ctx context.Context, userID, resourceID string) error {
	res, err := c.resource(ctx, resourceID)
	if err != nil {
		return err
	}
	if err := c.users.Bookmark(ctx, userID, resourceID); err != nil {
		return err
	}
	if err := c.pages.Bookmark(ctx, userID, res.URL); err != nil {
		return err
	}
	return c.reproject(ctx, resourceID)
}

// Unbookmark reverses Bookmark, in the same order.
func (c *Catalog) Unbookmark(ctx context.Context, userID, resourceID string) error {
	res, err := c.resource(ctx, resourceID)
	if err != nil {
		return err
	}
	if err := c.users.Unbookmark(ctx, userID, resourceID); err != nil {
		return err
	}
	if err := c.pages.Unbookmark(ctx, userID, res.URL); err != nil {
		return err
	}
	return c.reproject(ctx, resourceID)
}

// View records a view of resourceID. The user history is updated before
// returning; the page counter and the listing record follow
// asynchronously. An empty userID records an anonymous view.
func (c *Catalog) View(ctx context.Context, userID, resourceID string) error {
	res, err := c.resource(ctx, resourceID)
	if err != nil {
		return err
	}
	if userID != "" {
		if err := c.users.View(ctx, userID, resourceID); err != nil {
			return err
		}
	}

	c.bg.Go("count view "+resourceID, func(ctx context.Context) error {
		if err := c.pages.View(ctx, res.URL); err != nil {
			return err
		}
		return c.reproject(ctx, resourceID)
	})
	return nil
}

// PageChanged reprojects the resource published for the page at url, if
// any. Callers that change a page directly, outside the flows above, use
// it to keep the listing record current.
func (c *Catalog) PageChanged(ctx context.Context, url string) error {
	page, err := c.pages.Current(ctx, url)
	if err != nil || page == nil {
		return err
	}
	id, ok, err := c.resources.ByURL(ctx, page.URL)
	if err != nil || !ok {
		return err
	}
	return c.reproject(ctx, id)
}

// GetResource returns the listing record of resourceID, read from the
// cache, then the index, then the Resource Store.
func (c *Catalog) GetResource(ctx context.Context, resourceID string) (*domain.ResourceMetadata, error) {
	meta, err := cache.GetOrLoad(ctx, c.cache, cache.ResourceKey(resourceID), func(ctx context.Context) (*domain.ResourceMetadata, error) {
		if meta, ok := c.index.Get(resourceID); ok {
			return meta, nil
		}
		details, err := c.resources.GetDetails(ctx, resourceID)
		if err != nil || details == nil {
			return nil, err
		}
		return &details.Metadata, nil
	})
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, fmt.Errorf("resource %s: %w", resourceID, domain.ErrNotFound)
	}
	return meta, nil
}

func (c *Catalog) resource(ctx context.Context, id string) (*domain.Resource, error) {
	res, err := c.resources.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("resource %s: %w", id, domain.ErrNotFound)
	}
	return res, nil
}

func (c *Catalog) reproject(ctx context.Context, id string) error {
	if _, err := c.resources.Refresh(ctx, "", id); err != nil {
		c.log.Warn("projection refresh failed", logger.String("id", id), logger.Error(err))
		return err
	}
	return nil
}
