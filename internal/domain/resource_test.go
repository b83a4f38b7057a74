package domain

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestTruncateDescription(t *testing.T) {
	long := strings.Repeat("a", 79) + " bcdef"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "A router", want: "A router"},
		{name: "whitespace collapsed", in: "  A \n\t router  ", want: "A router"},
		{name: "exactly the limit", in: strings.Repeat("x", DescriptionLimit), want: strings.Repeat("x", DescriptionLimit)},
		{name: "cut and trimmed", in: long, want: strings.Repeat("a", 79) + "…"},
		{name: "runes not bytes", in: strings.Repeat("é", 100), want: strings.Repeat("é", DescriptionLimit) + "…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateDescription(tt.in)
			if got != tt.want {
				t.Errorf("TruncateDescription() = %q, want %q", got, tt.want)
			}
			if n := utf8.RuneCountInString(got); n > DescriptionLimit+1 {
				t.Errorf("result has %d runes", n)
			}
		})
	}
}

func TestProject(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	res := &Resource{ID: "r1", URL: "https://example.com/", CreatedAt: created}

	t.Run("with page", func(t *testing.T) {
		page := NewPage(PageDraft{
			URL:         "https://example.com/",
			Title:       "Example",
			Description: strings.Repeat("d", 90),
			Author:      "ann",
			Category:    CategoryPackage,
		}, created)
		page.ViewCount = 7
		page.BookmarkUserIDs = []string{"u1", "u2"}

		meta := Project(res, page, []string{"react"})
		if meta.Title != "Example" || meta.Author != "ann" || meta.Category != CategoryPackage {
			t.Errorf("unexpected projection %+v", meta)
		}
		if meta.ViewCount != 7 || meta.BookmarkCount != 2 {
			t.Errorf("counters = %d/%d, want 7/2", meta.ViewCount, meta.BookmarkCount)
		}
		if utf8.RuneCountInString(meta.Description) != DescriptionLimit+1 {
			t.Errorf("description not truncated: %q", meta.Description)
		}
		if !meta.CreatedAt.Equal(created) {
			t.Errorf("CreatedAt = %v, want the resource's", meta.CreatedAt)
		}
	})

	t.Run("without page", func(t *testing.T) {
		meta := Project(res, nil, nil)
		if meta.Category != CategoryOthers {
			t.Errorf("Category = %q, want %q", meta.Category, CategoryOthers)
		}
		if meta.Tags == nil || len(meta.Tags) != 0 {
			t.Errorf("Tags = %#v, want empty slice", meta.Tags)
		}
	})
}
