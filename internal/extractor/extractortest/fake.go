// Package extractortest provides an in-memory extractor for store tests.
package extractortest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
)

// Fake serves canned drafts by URL and counts calls.
type Fake struct {
	// Delay is slept before every answer, to widen race windows in tests.
	Delay time.Duration

	mu     sync.Mutex
	drafts map[string]domain.PageDraft
	calls  map[string]int
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{
		drafts: make(map[string]domain.PageDraft),
		calls:  make(map[string]int),
	}
}

// Set registers the draft returned for url. An empty draft URL means the
// page is its own canonical URL.
func (f *Fake) Set(url string, draft domain.PageDraft) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if draft.URL == "" {
		draft.URL = url
	}
	f.drafts[url] = draft
}

// Extract implements pages.Extractor. Unknown URLs are unreachable.
func (f *Fake) Extract(ctx context.Context, url string) (*domain.PageDraft, error) {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	d, ok := f.drafts[url]
	if !ok {
		return nil, fmt.Errorf("%w: no fake page for %s", domain.ErrUnreachable, url)
	}
	d.Manifest = append([]string(nil), d.Manifest...)
	d.Integrations = append([]string(nil), d.Integrations...)
	return &d, nil
}

// Calls returns how many times url was extracted.
func (f *Fake) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}
