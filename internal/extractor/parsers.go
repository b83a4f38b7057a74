package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// tags holds the fields read from a document's head.
type tags struct {
	Title       string
	Description string
	Image       string
	Video       string
	Author      string
}

// merge fills the empty fields of t from other.
func (t *tags) merge(other tags) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&t.Title, other.Title)
	fill(&t.Description, other.Description)
	fill(&t.Image, other.Image)
	fill(&t.Video, other.Video)
	fill(&t.Author, other.Author)
}

// tagParser reads one family of tags. It returns the first non-empty hit
// per field.
type tagParser func(doc *goquery.Document) tags

// parsers run in priority order; later parsers only fill gaps.
var parsers = []tagParser{openGraph, twitterCard, bareHTML}

func parseTags(doc *goquery.Document) tags {
	var out tags
	for _, p := range parsers {
		out.merge(p(doc))
	}
	return out
}

func openGraph(doc *goquery.Document) tags {
	return tags{
		Title:       metaContent(doc, "property", "og:title"),
		Description: metaContent(doc, "property", "og:description"),
		Image:       metaContent(doc, "property", "og:image", "og:image:url", "og:image:secure_url"),
		Video:       metaContent(doc, "property", "og:video", "og:video:url", "og:video:secure_url"),
		Author:      metaContent(doc, "property", "article:author", "og:site_name"),
	}
}

func twitterCard(doc *goquery.Document) tags {
	return tags{
		Title:       metaContent(doc, "name", "twitter:title"),
		Description: metaContent(doc, "name", "twitter:description"),
		Image:       metaContent(doc, "name", "twitter:image", "twitter:image:src"),
		Video:       metaContent(doc, "name", "twitter:player"),
		Author:      metaContent(doc, "name", "twitter:creator"),
	}
}

func bareHTML(doc *goquery.Document) tags {
	return tags{
		Title:       clean(doc.Find("head title").First().Text()),
		Description: metaContent(doc, "name", "description"),
		Image:       linkHref(doc, "image_src"),
		Author:      metaContent(doc, "name", "author"),
	}
}

// canonicalOf returns the declared canonical URL: <link rel=canonical>
// first, then og:url. The value may be relative.
func canonicalOf(doc *goquery.Document) string {
	if href := linkHref(doc, "canonical"); href != "" {
		return href
	}
	return metaContent(doc, "property", "og:url")
}

// metaContent returns the first non-empty content of a <meta> whose attr
// (property or name, both are accepted in the wild) equals one of keys.
func metaContent(doc *goquery.Document, attr string, keys ...string) string {
	alt := "name"
	if attr == "name" {
		alt = "property"
	}
	for _, key := range keys {
		var found string
		doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr(attr)
			if v == "" {
				v, _ = s.Attr(alt)
			}
			if !strings.EqualFold(strings.TrimSpace(v), key) {
				return true
			}
			content, _ := s.Attr("content")
			if content = clean(content); content != "" {
				found = content
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func linkHref(doc *goquery.Document, rel string) string {
	var found string
	doc.Find("link").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		r, _ := s.Attr("rel")
		for _, part := range strings.Fields(strings.ToLower(r)) {
			if part == rel {
				href, _ := s.Attr("href")
				if href = strings.TrimSpace(href); href != "" {
					found = href
					return false
				}
			}
		}
		return true
	})
	return found
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
