package extractor

import (
	"net/url"
	"strings"
)

// bypasses rewrite links of hosts that refuse scrapers into a URL that
// needs no fetch, keyed by host without "www.".
var bypasses = map[string]func(u *url.URL) (string, bool){
	"youtu.be": func(u *url.URL) (string, bool) {
		id := strings.Trim(u.Path, "/")
		if id == "" || strings.Contains(id, "/") {
			return "", false
		}
		return "https://www.youtube.com/watch?v=" + url.QueryEscape(id), true
	},
}

func bypass(target string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	rewrite, ok := bypasses[strings.TrimPrefix(strings.ToLower(u.Host), "www.")]
	if !ok {
		return "", false
	}
	return rewrite(u)
}
