package search

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/platform-resolver/internal/classify"
	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/pkg/serpapi"
)

var tokenSplit = regexp.MustCompile(`[,\s]+`)

// LocationTokens splits an address on commas and whitespace and keeps the
// case-folded tokens longer than two characters.
func LocationTokens(address string) []string {
	var out []string
	for _, tok := range tokenSplit.Split(cases.Fold().String(address), -1) {
		if len(tok) > 2 {
			out = append(out, tok)
		}
	}
	return out
}

// matchesLocation reports whether any token appears in the result's link,
// title or snippet. No tokens means no location constraint.
func matchesLocation(r serpapi.OrganicResult, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}
	fold := cases.Fold()
	haystack := fold.String(r.Link) + "\n" + fold.String(r.Title) + "\n" + fold.String(r.Snippet)
	for _, tok := range tokens {
		if strings.Contains(haystack, tok) {
			return true
		}
	}
	return false
}

// pickResult walks results in relevance order and returns the first link
// that is a profile for k, is not a search page, and matches the location.
func pickResult(results []serpapi.OrganicResult, k model.PlatformKey, tokens []string) (string, bool) {
	for _, r := range results {
		link := strings.TrimSpace(r.Link)
		if link == "" || strings.Contains(strings.ToLower(link), "/search") {
			continue
		}
		if !classify.Matches(k, link) {
			continue
		}
		if !matchesLocation(r, tokens) {
			continue
		}
		if k == model.PlatformLinkedIn {
			return classify.NormalizeLinkedIn(link), true
		}
		return classify.StripQuery(link), true
	}
	return "", false
}

// Query builds the search string "{name} {platform key} {address}".
func Query(name string, k model.PlatformKey, address string) string {
	return strings.TrimSpace(strings.Join(strings.Fields(name+" "+string(k)+" "+address), " "))
}
