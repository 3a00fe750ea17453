package resolve

import (
	"net/url"
	"strings"

	"github.com/sells-group/platform-resolver/internal/model"
)

// GoogleResult builds the Google entry without any network call. A place
// id yields the write-review and place links; otherwise search links built
// from the name and address stand in.
func GoogleResult(id model.BusinessIdentity) model.PlatformResult {
	r := model.PlatformResult{
		Platform: model.PlatformGoogle,
		Verified: true,
		Source:   model.SourceDirect,
	}
	name := strings.TrimSpace(id.Name)
	address := strings.TrimSpace(id.Address)

	if placeID := strings.TrimSpace(id.PlaceID); placeID != "" {
		r.ReviewURL = "https://search.google.com/local/writereview?placeid=" + url.QueryEscape(placeID)
		r.MapsURL = "https://www.google.com/maps/place/?q=place_id:" + url.QueryEscape(placeID)
		return r
	}

	r.ReviewURL = "https://www.google.com/search?q=" + url.QueryEscape(joinNonEmpty(name+" reviews", address))
	r.MapsURL = "https://www.google.com/maps/search/" + url.PathEscape(joinNonEmpty(name, address))
	return r
}

func joinNonEmpty(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
