package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// PlatformKey identifies one of the fixed review and social platforms.
type PlatformKey string

const (
	PlatformGoogle       PlatformKey = "google"
	PlatformFacebook     PlatformKey = "facebook"
	PlatformInstagram    PlatformKey = "instagram"
	PlatformTwitter      PlatformKey = "twitter"
	PlatformYouTube      PlatformKey = "youtube"
	PlatformTikTok       PlatformKey = "tiktok"
	PlatformLinkedIn     PlatformKey = "linkedin"
	PlatformTrustpilot   PlatformKey = "trustpilot"
	PlatformTripadvisor  PlatformKey = "tripadvisor"
	PlatformYelp         PlatformKey = "yelp"
	PlatformYell         PlatformKey = "yell"
	PlatformCheckatrade  PlatformKey = "checkatrade"
	PlatformRatedPeople  PlatformKey = "ratedpeople"
	PlatformTrustATrader PlatformKey = "trustatrader"
)

// allPlatforms is the fixed priority order used by every stage.
var allPlatforms = []PlatformKey{
	PlatformGoogle,
	PlatformFacebook,
	PlatformInstagram,
	PlatformTwitter,
	PlatformYouTube,
	PlatformTikTok,
	PlatformLinkedIn,
	PlatformTrustpilot,
	PlatformTripadvisor,
	PlatformYelp,
	PlatformYell,
	PlatformCheckatrade,
	PlatformRatedPeople,
	PlatformTrustATrader,
}

var displayNames = map[PlatformKey]string{
	PlatformGoogle:       "Google",
	PlatformFacebook:     "Facebook",
	PlatformInstagram:    "Instagram",
	PlatformTwitter:      "Twitter",
	PlatformYouTube:      "YouTube",
	PlatformTikTok:       "TikTok",
	PlatformLinkedIn:     "LinkedIn",
	PlatformTrustpilot:   "Trustpilot",
	PlatformTripadvisor:  "Tripadvisor",
	PlatformYelp:         "Yelp",
	PlatformYell:         "Yell",
	PlatformCheckatrade:  "Checkatrade",
	PlatformRatedPeople:  "RatedPeople",
	PlatformTrustATrader: "TrustATrader",
}

// AllPlatforms returns every platform key in priority order.
func AllPlatforms() []PlatformKey {
	out := make([]PlatformKey, len(allPlatforms))
	copy(out, allPlatforms)
	return out
}

// CascadePlatforms returns the platforms resolved through the
// scrape/search/AI cascade. Google is synthesized and never cascades.
func CascadePlatforms() []PlatformKey {
	return AllPlatforms()[1:]
}

// ParsePlatformKey converts s into a known PlatformKey.
func ParsePlatformKey(s string) (PlatformKey, error) {
	k := PlatformKey(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := displayNames[k]; !ok {
		return "", eris.Errorf("model: unknown platform %q", s)
	}
	return k, nil
}

// DisplayName returns the human-readable platform name used in queries
// and prompts.
func (k PlatformKey) DisplayName() string {
	if n, ok := displayNames[k]; ok {
		return n
	}
	return string(k)
}

// IsReviewSite reports whether the platform is primarily a review directory
// rather than a social network.
func (k PlatformKey) IsReviewSite() bool {
	switch k {
	case PlatformTrustpilot, PlatformTripadvisor, PlatformYelp, PlatformYell,
		PlatformCheckatrade, PlatformRatedPeople, PlatformTrustATrader:
		return true
	}
	return false
}
