package classify

import (
	"net/url"
	"strings"

	"github.com/sells-group/platform-resolver/internal/model"
)

// StripQuery drops the query string and fragment from rawURL.
func StripQuery(rawURL string) string {
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// NormalizeLinkedIn folds locale subdomains (uk.linkedin.com) and the bare
// domain onto www.linkedin.com, strips query and fragment, and trims
// trailing slashes from /in/ and /company/ paths.
func NormalizeLinkedIn(rawURL string) string {
	u := parse(StripQuery(rawURL))
	if u == nil {
		return StripQuery(rawURL)
	}
	host := strings.ToLower(u.Hostname())
	if host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com") {
		u.Host = "www.linkedin.com"
	}
	u.Scheme = "https"
	lower := strings.ToLower(u.Path)
	if strings.HasPrefix(lower, "/in/") || strings.HasPrefix(lower, "/company/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// Canonical returns the profile URL form used in results: absolute,
// without query or fragment, without a trailing slash. Facebook
// profile.php links keep their id parameter.
func Canonical(k model.PlatformKey, rawURL string) string {
	if k == model.PlatformLinkedIn {
		return NormalizeLinkedIn(rawURL)
	}
	u := parse(rawURL)
	if u == nil {
		return StripQuery(rawURL)
	}
	if k == model.PlatformFacebook && strings.EqualFold(u.Path, "/profile.php") {
		if id := u.Query().Get("id"); id != "" {
			u.RawQuery = url.Values{"id": {id}}.Encode()
			u.Fragment = ""
			return u.String()
		}
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// ReviewURL derives the review page for platforms whose review page is
// addressable from the profile. It returns "" when there is none.
func ReviewURL(k model.PlatformKey, profile string) string {
	switch k {
	case model.PlatformFacebook:
		if strings.Contains(profile, "profile.php?") {
			return profile + "&sk=reviews"
		}
		return strings.TrimRight(profile, "/") + "/reviews"
	case model.PlatformTrustpilot:
		return profile
	}
	return ""
}

// Build assembles the result for a profile URL found by a cascade stage.
func Build(k model.PlatformKey, rawURL string, source model.Source, verified bool) model.PlatformResult {
	profile := Canonical(k, rawURL)
	return model.PlatformResult{
		Platform:   k,
		ProfileURL: profile,
		ReviewURL:  ReviewURL(k, profile),
		Verified:   verified,
		Source:     source,
	}
}
