package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

// fromAPI builds the draft of an npm package or GitHub repository page from
// the service's API. It reports false when target matches neither or the
// lookup failed, in which case the page is scraped like any other.
func (e *Extractor) fromAPI(ctx context.Context, target string) (*domain.PageDraft, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, false
	}

	var draft *domain.PageDraft
	if name, ok := npmPackage(u); ok {
		draft, err = e.npm(ctx, name)
	} else if owner, repo, ok := githubRepo(u); ok {
		draft, err = e.github(ctx, owner, repo)
	} else {
		return nil, false
	}
	if err != nil {
		e.log.Warn("enrichment lookup failed, falling back to scraping",
			logger.String("url", target), logger.Error(err))
		return nil, false
	}
	return draft, true
}

// enrich sets the category of a scraped draft and runs the lookups that
// complement HTML (video platforms).
func (e *Extractor) enrich(ctx context.Context, draft *domain.PageDraft) *domain.PageDraft {
	u, err := url.Parse(draft.URL)
	if err != nil {
		return draft
	}
	if id, ok := youtubeVideo(u); ok {
		draft.Category = domain.CategoryVideo
		if err := e.youtube(ctx, id, draft); err != nil {
			e.log.Warn("oembed lookup failed", logger.String("url", draft.URL), logger.Error(err))
		}
	}
	return draft
}

// npmPackage matches https://www.npmjs.com/package/<name> and scoped names.
func npmPackage(u *url.URL) (string, bool) {
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "npmjs.com" {
		return "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "package" && parts[1] != "":
		return parts[1], true
	case len(parts) == 3 && parts[0] == "package" && strings.HasPrefix(parts[1], "@"):
		return parts[1] + "/" + parts[2], true
	}
	return "", false
}

// githubRepo matches https://github.com/<owner>/<repo>.
func githubRepo(u *url.URL) (string, string, bool) {
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	if host != "github.com" {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}

// youtubeVideo matches https://www.youtube.com/watch?v=<id>.
func youtubeVideo(u *url.URL) (string, bool) {
	host := strings.ToLower(u.Host)
	if host != "youtube.com" && host != "www.youtube.com" && host != "m.youtube.com" {
		return "", false
	}
	if strings.TrimRight(u.Path, "/") != "/watch" {
		return "", false
	}
	id := u.Query().Get("v")
	return id, id != ""
}

type npmDocument struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Author      json.RawMessage `json:"author"`
	DistTags    struct {
		Latest string `json:"latest"`
	} `json:"dist-tags"`
	Versions map[string]struct {
		Dependencies     map[string]string `json:"dependencies"`
		PeerDependencies map[string]string `json:"peerDependencies"`
	} `json:"versions"`
}

func (e *Extractor) npm(ctx context.Context, name string) (*domain.PageDraft, error) {
	var doc npmDocument
	if err := e.getJSON(ctx, e.npmRegistry+"/"+url.PathEscape(name), &doc); err != nil {
		return nil, fmt.Errorf("npm registry: %w", err)
	}
	if doc.Name == "" {
		doc.Name = name
	}

	draft := &domain.PageDraft{
		URL:         "https://www.npmjs.com/package/" + doc.Name,
		Title:       doc.Name,
		Description: doc.Description,
		Author:      personName(doc.Author),
		Category:    domain.CategoryPackage,
	}
	if latest, ok := doc.Versions[doc.DistTags.Latest]; ok {
		draft.Manifest = keys(latest.Dependencies, latest.PeerDependencies)
	}
	return draft, nil
}

// personName reads an npm "person" field: either "Name <mail>" or an
// object with a name.
func personName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i := strings.IndexAny(s, "<("); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSpace(s)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Name
	}
	return ""
}

type githubRepository struct {
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Description   string `json:"description"`
	HTMLURL       string `json:"html_url"`
	DefaultBranch string `json:"default_branch"`
	Owner         struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	} `json:"owner"`
}

type githubEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func (e *Extractor) github(ctx context.Context, owner, repo string) (*domain.PageDraft, error) {
	base := fmt.Sprintf("%s/repos/%s/%s", e.githubAPI, url.PathEscape(owner), url.PathEscape(repo))

	var r githubRepository
	if err := e.getJSON(ctx, base, &r); err != nil {
		return nil, fmt.Errorf("github repo: %w", err)
	}
	if r.FullName == "" {
		r.FullName = owner + "/" + repo
	}
	if r.Owner.Login == "" {
		r.Owner.Login = owner
	}

	draft := &domain.PageDraft{
		URL:         "https://github.com/" + r.FullName,
		Title:       r.FullName,
		Description: r.Description,
		Author:      r.Owner.Login,
		Category:    domain.CategoryRepository,
	}

	// The root listing and manifest are best effort.
	var entries []githubEntry
	if err := e.getJSON(ctx, base+"/contents", &entries); err != nil {
		e.log.Debug("github contents lookup failed", logger.String("repo", r.FullName), logger.Error(err))
		return draft, nil
	}

	hasManifest := false
	for _, entry := range entries {
		if entry.Type != "file" {
			continue
		}
		if entry.Name == "package.json" {
			hasManifest = true
		}
		if e.table.IsConfigFile(entry.Name) {
			draft.ConfigFiles = append(draft.ConfigFiles, entry.Name)
		}
	}

	if hasManifest {
		branch := r.DefaultBranch
		if branch == "" {
			branch = "HEAD"
		}
		var pkg packageJSON
		raw := fmt.Sprintf("%s/%s/%s/package.json", e.githubRaw, r.FullName, branch)
		if err := e.getJSON(ctx, raw, &pkg); err != nil {
			e.log.Debug("package.json lookup failed", logger.String("repo", r.FullName), logger.Error(err))
		} else {
			draft.Manifest = keys(pkg.Dependencies, pkg.DevDependencies)
		}
	}
	return draft, nil
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (e *Extractor) youtube(ctx context.Context, id string, draft *domain.PageDraft) error {
	q := url.Values{}
	q.Set("url", draft.URL)
	q.Set("format", "json")

	var o oembedResponse
	if err := e.getJSON(ctx, e.oembed+"?"+q.Encode(), &o); err != nil {
		return err
	}
	if o.Title != "" {
		draft.Title = o.Title
	}
	if o.AuthorName != "" {
		draft.Author = o.AuthorName
	}
	if draft.Image == "" && o.ThumbnailURL != "" && e.reachable(ctx, o.ThumbnailURL) {
		draft.Image = o.ThumbnailURL
	}
	draft.Video = "https://www.youtube.com/embed/" + url.PathEscape(id)
	return nil
}

// keys returns the sorted union of the maps' keys.
func keys(maps ...map[string]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range maps {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Strings(out)
	return out
}
