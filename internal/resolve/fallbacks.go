package resolve

import (
	"net/url"
	"strings"

	"github.com/sells-group/platform-resolver/internal/model"
)

var fallbackSearch = map[model.PlatformKey]string{
	model.PlatformTripadvisor:  "https://www.tripadvisor.com/Search?q=",
	model.PlatformTrustpilot:   "https://www.trustpilot.com/search?query=",
	model.PlatformYelp:         "https://www.yelp.com/search?find_desc=",
	model.PlatformYell:         "https://www.yell.com/search/uk?keywords=",
	model.PlatformCheckatrade:  "https://www.checkatrade.com/search?query=",
	model.PlatformRatedPeople:  "https://www.ratedpeople.com/search?q=",
	model.PlatformTrustATrader: "https://www.trustatrader.com/search?query=",
}

// AddFallbacks fills unresolved review platforms with an unverified entry
// pointing at the platform's own search page. Resolved platforms are left
// alone.
func AddFallbacks(set model.PlatformResultSet, id model.BusinessIdentity) {
	query := url.QueryEscape(strings.TrimSpace(id.Name))
	for _, k := range model.CascadePlatforms() {
		base, ok := fallbackSearch[k]
		if !ok || set.Resolved(k) {
			continue
		}
		set[k] = model.PlatformResult{
			Platform:  k,
			SearchURL: base + query,
			Verified:  false,
			Source:    model.SourceFallback,
			Note:      "Search " + k.DisplayName() + " for this business",
		}
	}
}
