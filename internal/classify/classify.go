// Package classify maps URLs to the review and social platforms they
// belong to. The rule table here is the single source of truth consumed by
// the website scraper and the search resolver.
package classify

import (
	"net/url"
	"strings"

	"github.com/sells-group/platform-resolver/internal/model"
)

// rule describes how a platform's profile URLs look.
type rule struct {
	// hosts are registrable domains; subdomains match too.
	hosts []string
	// prefixes restrict the path; empty means any non-root path.
	prefixes []string
	// exclude rejects share widgets, redirectors and content pages.
	exclude pathMatcher
}

var rules = map[model.PlatformKey]rule{
	model.PlatformFacebook: {
		hosts:   []string{"facebook.com", "fb.com"},
		exclude: newPathMatcher("/sharer/*", "/sharer.php", "/share/*", "/share.php", "/dialog/*", "/plugins/*", "/tr", "/l.php", "/login/*", "/search/*"),
	},
	model.PlatformInstagram: {
		hosts:   []string{"instagram.com"},
		exclude: newPathMatcher("/p/*", "/reel/*", "/explore/*", "/accounts/*"),
	},
	model.PlatformTwitter: {
		hosts:   []string{"twitter.com", "x.com"},
		exclude: newPathMatcher("/intent/*", "/share", "/share/*", "/home", "/search", "/hashtag/*"),
	},
	model.PlatformYouTube: {
		hosts:    []string{"youtube.com"},
		prefixes: []string{"/channel/", "/c/", "/user/", "/@"},
	},
	model.PlatformTikTok: {
		hosts:    []string{"tiktok.com"},
		prefixes: []string{"/@"},
	},
	model.PlatformLinkedIn: {
		hosts:    []string{"linkedin.com"},
		prefixes: []string{"/company/", "/in/"},
	},
	model.PlatformTrustpilot: {
		hosts:    []string{"trustpilot.com"},
		prefixes: []string{"/review/"},
	},
	model.PlatformTripadvisor: {
		hosts:    []string{"tripadvisor.com", "tripadvisor.co.uk"},
		prefixes: []string{"/restaurant_review", "/hotel_review", "/attraction_review"},
	},
	model.PlatformYelp: {
		hosts:    []string{"yelp.com", "yelp.co.uk"},
		prefixes: []string{"/biz/"},
	},
	model.PlatformYell: {
		hosts:    []string{"yell.com"},
		prefixes: []string{"/biz/"},
	},
	model.PlatformCheckatrade: {
		hosts:    []string{"checkatrade.com"},
		prefixes: []string{"/trades/"},
	},
	model.PlatformRatedPeople: {
		hosts:    []string{"ratedpeople.com"},
		prefixes: []string{"/tradesman/", "/profile/"},
	},
	model.PlatformTrustATrader: {
		hosts:    []string{"trustatrader.com"},
		prefixes: []string{"/trader/", "/traders/"},
	},
}

// Classify returns the platforms rawURL belongs to, in priority order.
// Unmatched or unparseable URLs yield an empty slice.
func Classify(rawURL string) []model.PlatformKey {
	u := parse(rawURL)
	if u == nil {
		return nil
	}
	var out []model.PlatformKey
	for _, k := range model.CascadePlatforms() {
		if rules[k].match(u) {
			out = append(out, k)
		}
	}
	return out
}

// Matches reports whether rawURL is a profile URL for platform k.
func Matches(k model.PlatformKey, rawURL string) bool {
	r, ok := rules[k]
	if !ok {
		return false
	}
	u := parse(rawURL)
	return u != nil && r.match(u)
}

func (r rule) match(u *url.URL) bool {
	if !hostMatches(u.Hostname(), r.hosts) {
		return false
	}
	p := strings.ToLower(u.Path)
	if p == "" || p == "/" {
		return false
	}
	if r.exclude.Match(p) {
		return false
	}
	if len(r.prefixes) == 0 {
		return true
	}
	for _, prefix := range r.prefixes {
		if strings.HasPrefix(p, prefix) && len(p) > len(prefix) {
			return true
		}
	}
	return false
}

// hostMatches compares on label boundaries so "fox.com" never matches
// "x.com".
func hostMatches(host string, domains []string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// parse accepts absolute URLs, protocol-relative URLs and bare
// "host/path" strings. It returns nil for anything without a host.
func parse(rawURL string) *url.URL {
	s := strings.TrimSpace(rawURL)
	switch {
	case s == "":
		return nil
	case strings.HasPrefix(s, "//"):
		s = "https:" + s
	case !strings.Contains(s, "://"):
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return nil
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	return u
}
