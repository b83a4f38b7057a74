package domain

import (
	"strings"
	"unicode"
)

// Query represents parsed search input.
type Query struct {
	Raw       string   // Lowercased, trimmed input
	Fragments []string // Normalized words, in input order
}

// ParseQuery splits input into normalized fragments.
// Examples:
//   - "React Router" -> ["react", "router"]
//   - "next.js  auth" -> ["nextjs", "auth"]
func ParseQuery(input string) *Query {
	input = strings.TrimSpace(strings.ToLower(input))
	return &Query{
		Raw:       input,
		Fragments: Tokenize(input),
	}
}

// Tokenize splits text on whitespace and normalizes every word. Empty words
// are dropped. Dots and dashes inside a word are removed so "next.js" and
// "nextjs" produce the same token.
func Tokenize(text string) []string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if n := normalizeFragment(w); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// normalizeFragment keeps letters and digits, lowercased.
func normalizeFragment(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}
