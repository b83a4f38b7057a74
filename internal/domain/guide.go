package domain

import "time"

// List is a named collection inside a guide. Its slug is unique per guide.
type List struct {
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	BookmarkIDs []string  `json:"bookmarkIds"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GuideBookmark is the reverse mapping of List.BookmarkIDs.
//
// Invariant: b.Lists contains slug iff lists[slug].BookmarkIDs contains b.ID.
type GuideBookmark struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Lists     []string  `json:"lists"`
	Timestamp time.Time `json:"timestamp"`
}

// BookmarkView is a guide bookmark joined with its page for listing.
type BookmarkView struct {
	GuideBookmark
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Author      string   `json:"author,omitempty"`
	Tags        []string `json:"tags"`
}

// Guide is the read-only summary served at the root of a guide.
type Guide struct {
	ID        string  `json:"id"`
	Lists     []*List `json:"lists"`
	Bookmarks int     `json:"bookmarks"`
}
