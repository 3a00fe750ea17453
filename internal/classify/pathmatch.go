package classify

import (
	"path"
	"strings"
)

// pathMatcher matches URL paths against glob-style patterns. A pattern
// ending in "/*" also matches deeper paths below its directory, so
// "/sharer/*" covers "/sharer/sharer.php" and "/sharer".
type pathMatcher struct {
	patterns []string
}

func newPathMatcher(patterns ...string) pathMatcher {
	lower := make([]string, len(patterns))
	for i, p := range patterns {
		lower[i] = strings.ToLower(p)
	}
	return pathMatcher{patterns: lower}
}

// Match reports whether urlPath matches any pattern, ignoring case.
func (m pathMatcher) Match(urlPath string) bool {
	urlPath = strings.ToLower(urlPath)
	for _, pattern := range m.patterns {
		if matchSegmented(pattern, urlPath) {
			return true
		}
	}
	return false
}

func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	return false
}
