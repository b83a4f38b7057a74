package domain

import "time"

// Page categories derived from the submitted URL.
const (
	CategoryPackage    = "package"
	CategoryRepository = "repository"
	CategoryVideo      = "video"
	CategoryOthers     = "others"
)

// PageDraft is what the extractor produces for one URL: everything a Page
// holds except counters and timestamps.
type PageDraft struct {
	// URL is the resolved canonical URL.
	URL string `json:"url"`

	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Video       string `json:"video,omitempty"`
	Author      string `json:"author,omitempty"`
	Category    string `json:"category"`

	// Manifest holds dependency names read from a package manifest.
	Manifest []string `json:"manifest,omitempty"`

	// ConfigFiles lists well-known config filenames found in a repository.
	ConfigFiles []string `json:"configFiles,omitempty"`

	// Integrations are topic tags derived at extraction time.
	Integrations []string `json:"integrations,omitempty"`

	IsSafe bool `json:"isSafe"`
}

// Page is the canonical record of one scraped URL.
//
// It is owned by exactly one page actor, keyed by the canonical URL.
// Counters only move through that actor.
type Page struct {
	PageDraft

	// ViewCount is the number of recorded views, never negative.
	ViewCount int64 `json:"viewCount"`

	// BookmarkUserIDs is a set: no duplicates, insertion ordered.
	BookmarkUserIDs []string `json:"bookmarkUserIds"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewPage creates a Page from a fresh extraction.
func NewPage(draft PageDraft, now time.Time) *Page {
	return &Page{
		PageDraft:       draft,
		BookmarkUserIDs: []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Refreshed returns a copy of p whose extracted fields are replaced by
// draft. CreatedAt and all counters are kept.
func (p *Page) Refreshed(draft PageDraft, now time.Time) *Page {
	next := *p
	next.PageDraft = draft
	next.BookmarkUserIDs = append([]string(nil), p.BookmarkUserIDs...)
	next.UpdatedAt = now
	return &next
}

// BookmarkCount returns the number of distinct users who bookmarked the page.
func (p *Page) BookmarkCount() int {
	return len(p.BookmarkUserIDs)
}
