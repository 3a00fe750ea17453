package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/platform-resolver/internal/model"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want []model.PlatformKey
	}{
		{"facebook", "https://facebook.com/boltonbathrooms/", []model.PlatformKey{model.PlatformFacebook}},
		{"facebook mobile", "https://m.facebook.com/acme", []model.PlatformKey{model.PlatformFacebook}},
		{"fb short", "fb.com/acme", []model.PlatformKey{model.PlatformFacebook}},
		{"facebook share widget", "https://www.facebook.com/sharer/sharer.php?u=x", nil},
		{"facebook root", "https://www.facebook.com/", nil},
		{"instagram", "https://www.instagram.com/acme/", []model.PlatformKey{model.PlatformInstagram}},
		{"instagram post", "https://www.instagram.com/p/Cx123/", nil},
		{"twitter", "https://twitter.com/acme", []model.PlatformKey{model.PlatformTwitter}},
		{"x", "https://x.com/acme", []model.PlatformKey{model.PlatformTwitter}},
		{"x intent", "https://x.com/intent/tweet?text=hi", nil},
		{"fox is not x", "https://fox.com/acme", nil},
		{"youtube channel", "https://www.youtube.com/channel/UC123", []model.PlatformKey{model.PlatformYouTube}},
		{"youtube handle", "https://www.youtube.com/@acme", []model.PlatformKey{model.PlatformYouTube}},
		{"youtube video", "https://www.youtube.com/watch?v=abc", nil},
		{"tiktok", "https://www.tiktok.com/@acme", []model.PlatformKey{model.PlatformTikTok}},
		{"tiktok no handle", "https://www.tiktok.com/discover", nil},
		{"linkedin company", "https://uk.linkedin.com/company/acme/", []model.PlatformKey{model.PlatformLinkedIn}},
		{"linkedin feed", "https://www.linkedin.com/feed/", nil},
		{"trustpilot", "https://uk.trustpilot.com/review/acme.co.uk", []model.PlatformKey{model.PlatformTrustpilot}},
		{"trustpilot search", "https://www.trustpilot.com/search?query=acme", nil},
		{"tripadvisor", "https://www.tripadvisor.co.uk/Restaurant_Review-g1-d2-Reviews-Acme.html", []model.PlatformKey{model.PlatformTripadvisor}},
		{"yelp", "https://www.yelp.co.uk/biz/acme-london", []model.PlatformKey{model.PlatformYelp}},
		{"yell", "https://www.yell.com/biz/acme-bolton-123/", []model.PlatformKey{model.PlatformYell}},
		{"checkatrade", "https://www.checkatrade.com/trades/acme", []model.PlatformKey{model.PlatformCheckatrade}},
		{"ratedpeople", "https://www.ratedpeople.com/profile/acme", []model.PlatformKey{model.PlatformRatedPeople}},
		{"trustatrader", "https://www.trustatrader.com/traders/acme-plumbing", []model.PlatformKey{model.PlatformTrustATrader}},
		{"unrelated", "https://example.com/facebook.com/acme", nil},
		{"mailto", "mailto:info@acme.com", nil},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(tt.url))
		})
	}
}

func TestMatches_UnknownPlatform(t *testing.T) {
	t.Parallel()

	assert.False(t, Matches(model.PlatformGoogle, "https://www.google.com/maps/place/x"))
	assert.True(t, Matches(model.PlatformYell, "https://www.yell.com/biz/acme/"))
}

func TestNormalizeLinkedIn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://uk.linkedin.com/company/acme/", "https://www.linkedin.com/company/acme"},
		{"https://linkedin.com/in/jane-doe//", "https://www.linkedin.com/in/jane-doe"},
		{"https://www.linkedin.com/company/acme?trk=public#about", "https://www.linkedin.com/company/acme"},
		{"http://de.linkedin.com/in/max", "https://www.linkedin.com/in/max"},
		{"linkedin.com/company/acme", "https://www.linkedin.com/company/acme"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NormalizeLinkedIn(tt.in))
		})
	}
}

func TestStripQuery(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://a.com/x", StripQuery("https://a.com/x?y=1#z"))
	assert.Equal(t, "https://a.com/x", StripQuery("https://a.com/x#z"))
	assert.Equal(t, "https://a.com/x", StripQuery("https://a.com/x"))
}

func TestBuild_Facebook(t *testing.T) {
	t.Parallel()

	r := Build(model.PlatformFacebook, "https://facebook.com/boltonbathrooms/", model.SourceScrape, true)
	assert.Equal(t, "https://facebook.com/boltonbathrooms", r.ProfileURL)
	assert.Equal(t, "https://facebook.com/boltonbathrooms/reviews", r.ReviewURL)
	assert.True(t, r.Verified)
	assert.Equal(t, model.SourceScrape, r.Source)
	assert.Equal(t, model.PlatformFacebook, r.Platform)
}

func TestBuild_FacebookProfilePHP(t *testing.T) {
	t.Parallel()

	r := Build(model.PlatformFacebook, "https://www.facebook.com/profile.php?id=1000123&ref=page", model.SourceSearch, false)
	assert.Equal(t, "https://www.facebook.com/profile.php?id=1000123", r.ProfileURL)
	assert.Equal(t, "https://www.facebook.com/profile.php?id=1000123&sk=reviews", r.ReviewURL)
}

func TestBuild_TrustpilotReviewIsProfile(t *testing.T) {
	t.Parallel()

	r := Build(model.PlatformTrustpilot, "https://uk.trustpilot.com/review/acme.co.uk?page=2", model.SourceSearch, true)
	assert.Equal(t, "https://uk.trustpilot.com/review/acme.co.uk", r.ProfileURL)
	assert.Equal(t, r.ProfileURL, r.ReviewURL)
}

func TestBuild_NoReviewURL(t *testing.T) {
	t.Parallel()

	r := Build(model.PlatformInstagram, "instagram.com/acme/", model.SourceAI, true)
	assert.Equal(t, "https://instagram.com/acme", r.ProfileURL)
	assert.Empty(t, r.ReviewURL)
}
