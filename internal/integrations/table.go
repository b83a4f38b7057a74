package integrations

import (
	"strings"

	"github.com/MrSnakeDoc/linkdex/internal/domain"
)

// Table matches manifests and text against the keyword table.
// It is immutable after construction and safe for concurrent use.
type Table struct {
	keywords []Keyword

	// byToken maps a normalized name or alias to its keyword name.
	byToken map[string]string

	// byPackage maps a lowercased dependency name to its keyword name.
	byPackage map[string]string

	groups []Group
}

func newTable(f File) *Table {
	t := &Table{
		keywords:  f.Keywords,
		byToken:   make(map[string]string),
		byPackage: make(map[string]string),
		groups:    f.Groups,
	}
	for _, kw := range f.Keywords {
		name := strings.ToLower(kw.Name)
		for _, alias := range append([]string{kw.Name}, kw.Aliases...) {
			t.byPackage[strings.ToLower(alias)] = name
			if tok := normalize(alias); tok != "" {
				t.byToken[tok] = name
			}
		}
		for _, pkg := range kw.Packages {
			t.byPackage[strings.ToLower(pkg)] = name
		}
	}
	return t
}

// Keywords returns the tag names in table order.
func (t *Table) Keywords() []string {
	out := make([]string, 0, len(t.keywords))
	for _, kw := range t.keywords {
		out = append(out, strings.ToLower(kw.Name))
	}
	return out
}

// FromManifest derives tags from dependency names and config filenames.
// Dependency names match keywords exactly (case-insensitive); groups match
// on dependency names or filenames.
func (t *Table) FromManifest(deps, files []string) []string {
	tags := []string{}
	for _, dep := range deps {
		if name, ok := t.byPackage[strings.ToLower(dep)]; ok {
			tags, _ = domain.AppendUnique(tags, name)
		}
	}

	for _, g := range t.groups {
		if matchesAny(g.Packages, deps) || matchesAny(g.Files, files) {
			tags, _ = domain.AppendUnique(tags, strings.ToLower(g.Name))
		}
	}
	return tags
}

// FromText derives tags by case-insensitive token matching of title and
// description against the keywords and the extra names (e.g. the titles of
// live package resources). Tags come out in text order.
func (t *Table) FromText(title, description string, extra []string) []string {
	extras := make(map[string]string, len(extra))
	for _, name := range extra {
		if tok := normalize(name); tok != "" {
			extras[tok] = strings.ToLower(strings.TrimSpace(name))
		}
	}

	tags := []string{}
	for _, tok := range domain.Tokenize(title + " " + description) {
		if name, ok := t.byToken[tok]; ok {
			tags, _ = domain.AppendUnique(tags, name)
		}
		if name, ok := extras[tok]; ok {
			tags, _ = domain.AppendUnique(tags, name)
		}
	}
	return tags
}

// Derive picks the manifest path when there is anything to match on, and
// falls back to text matching otherwise. Both results are merged with the
// text matches against extra so live package names always apply.
func (t *Table) Derive(draft *domain.PageDraft, extra []string) []string {
	var tags []string
	if len(draft.Manifest) > 0 || len(draft.ConfigFiles) > 0 {
		tags = t.FromManifest(draft.Manifest, draft.ConfigFiles)
		for _, name := range t.FromText(draft.Title, draft.Description, extra) {
			if !t.isKeyword(name) {
				tags, _ = domain.AppendUnique(tags, name)
			}
		}
		return tags
	}
	return t.FromText(draft.Title, draft.Description, extra)
}

func (t *Table) isKeyword(name string) bool {
	for _, kw := range t.keywords {
		if strings.EqualFold(kw.Name, name) {
			return true
		}
	}
	return false
}

func matchesAny(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(w, h) {
				return true
			}
		}
	}
	return false
}

func normalize(s string) string {
	toks := domain.Tokenize(s)
	return strings.Join(toks, "")
}

// IsConfigFile reports whether any group looks for a file named name.
func (t *Table) IsConfigFile(name string) bool {
	for _, g := range t.groups {
		for _, f := range g.Files {
			if strings.EqualFold(f, name) {
				return true
			}
		}
	}
	return false
}
