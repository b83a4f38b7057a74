package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// DescriptionLimit is the max number of runes kept in a projected description.
const DescriptionLimit = 80

// SubmitStatus is the outcome of a submission. It is a result, not an error.
type SubmitStatus string

const (
	StatusPublished   SubmitStatus = "PUBLISHED"
	StatusResubmitted SubmitStatus = "RESUBMITTED"
	StatusInvalid     SubmitStatus = "INVALID"
)

// SubmitResult is returned by submissions and bookmark creation.
// ID is empty when Status is StatusInvalid.
type SubmitResult struct {
	ID     string       `json:"id,omitempty"`
	Status SubmitStatus `json:"status"`
}

// Resource is the identity of a published submission.
type Resource struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ResourceMetadata is the denormalized listing record written to the
// secondary index. It is never the source of truth.
type ResourceMetadata struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Category      string    `json:"category"`
	Author        string    `json:"author,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	ViewCount     int64     `json:"viewCount"`
	BookmarkCount int       `json:"bookmarkCount"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"createdAt"`
}

// ResourceDetails joins a Resource with its live projection.
type ResourceDetails struct {
	Resource
	Metadata ResourceMetadata `json:"metadata"`
}

// Project builds the listing record of res from the current state of its page.
func Project(res *Resource, page *Page, tags []string) ResourceMetadata {
	meta := ResourceMetadata{
		ID:        res.ID,
		URL:       res.URL,
		Tags:      tags,
		CreatedAt: res.CreatedAt,
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	if page == nil {
		meta.Category = CategoryOthers
		return meta
	}
	meta.Category = page.Category
	meta.Author = page.Author
	meta.Title = page.Title
	meta.Description = TruncateDescription(page.Description)
	meta.ViewCount = page.ViewCount
	meta.BookmarkCount = page.BookmarkCount()
	return meta
}

// TruncateDescription collapses whitespace and cuts s to DescriptionLimit
// runes, appending an ellipsis when something was dropped.
func TruncateDescription(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= DescriptionLimit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:DescriptionLimit])) + "…"
}
