package index

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/store/kv"
)

var base = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func record(id, category, author, title string, age int, tags ...string) domain.ResourceMetadata {
	return domain.ResourceMetadata{
		ID:        id,
		URL:       "https://x.test/" + id,
		Category:  category,
		Author:    author,
		Title:     title,
		Tags:      tags,
		CreatedAt: base.Add(-time.Duration(age) * time.Hour),
	}
}

func seeded(t *testing.T) (*Index, *kv.Memory) {
	t.Helper()
	store := kv.NewMemory()
	idx := New(store)
	ctx := context.Background()
	for _, r := range []domain.ResourceMetadata{
		record("r1", domain.CategoryPackage, "Jane", "foo", 3, "react"),
		record("r2", domain.CategoryVideo, "jane", "A talk about React", 1, "react"),
		record("r3", domain.CategoryPackage, "Bob", "bar", 2),
		record("r4", domain.CategoryOthers, "", "React router guide", 0, "react", "hosting"),
	} {
		if err := idx.Put(ctx, r); err != nil {
			t.Fatalf("Put(%s) error = %v", r.ID, err)
		}
	}
	return idx, store
}

func ids(records []*domain.ResourceMetadata) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListings(t *testing.T) {
	idx, _ := seeded(t)

	tests := []struct {
		name string
		got  []*domain.ResourceMetadata
		want []string
	}{
		{name: "all newest first", got: idx.All(), want: []string{"r4", "r2", "r3", "r1"}},
		{name: "by category", got: idx.ListByCategory(domain.CategoryPackage), want: []string{"r3", "r1"}},
		{name: "by author is case insensitive", got: idx.ListByAuthor("JANE"), want: []string{"r2", "r1"}},
		{name: "empty author matches nothing", got: idx.ListByAuthor(""), want: []string{}},
		{name: "by tag", got: idx.ListByTag("react"), want: []string{"r4", "r2", "r1"}},
		{name: "unknown tag", got: idx.ListByTag("vue"), want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(tt.got); !equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPutOverwritesAndDelete(t *testing.T) {
	idx, store := seeded(t)
	ctx := context.Background()

	updated := record("r1", domain.CategoryPackage, "Jane", "foo", 3, "react")
	updated.BookmarkCount = 1
	if err := idx.Put(ctx, updated); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok := idx.Get("r1")
	if !ok || got.BookmarkCount != 1 {
		t.Errorf("Get(r1) = %+v, %v; want bookmarkCount 1", got, ok)
	}
	if idx.Count() != 4 {
		t.Errorf("Count() = %d, want 4", idx.Count())
	}

	if err := idx.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := idx.Get("r1"); ok {
		t.Error("Get(r1) found a deleted record")
	}
	if _, ok, _ := store.Get(ctx, Key("r1")); ok {
		t.Error("deleted record still persisted")
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	idx, _ := seeded(t)

	got, _ := idx.Get("r1")
	got.Title = "mutated"
	got.Tags[0] = "mutated"

	again, _ := idx.Get("r1")
	if again.Title != "foo" || again.Tags[0] != "react" {
		t.Errorf("index record was mutated through a returned copy: %+v", again)
	}
}

func TestLoadRebuildsFromStorage(t *testing.T) {
	_, store := seeded(t)
	ctx := context.Background()
	if err := store.Set(ctx, Key("broken"), "{"); err != nil {
		t.Fatal(err)
	}

	fresh := New(store)
	skipped, err := fresh.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if skipped != 1 {
		t.Errorf("Load() skipped = %d, want 1", skipped)
	}
	if fresh.Count() != 4 {
		t.Errorf("Count() after Load = %d, want 4", fresh.Count())
	}
	if fresh.LastReload().IsZero() {
		t.Error("LastReload() not set by Load")
	}
}

func TestSearch(t *testing.T) {
	idx, _ := seeded(t)

	got := idx.Search("react", 0)
	if len(got) != 2 {
		t.Fatalf("Search(react) returned %d candidates, want 2", len(got))
	}
	// "React router guide" starts with the word, "A talk about React" has it last.
	if got[0].Resource.ID != "r4" {
		t.Errorf("Search(react)[0] = %s, want r4", got[0].Resource.ID)
	}

	if got := idx.Search("react", 1); len(got) != 1 {
		t.Errorf("Search with limit 1 returned %d", len(got))
	}
	if got := idx.Search("zzz", 0); len(got) != 0 {
		t.Errorf("Search(zzz) returned %d, want 0", len(got))
	}
}

func TestConcurrentAccess(t *testing.T) {
	idx, _ := seeded(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = idx.Put(ctx, record("r1", domain.CategoryPackage, "Jane", "foo", 3))
		}()
		go func() {
			defer wg.Done()
			_ = idx.ListByTag("react")
			_ = idx.Search("foo", 5)
		}()
	}
	wg.Wait()
}
