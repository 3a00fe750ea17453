package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Normalization(t *testing.T) {
	t.Parallel()

	base := BusinessIdentity{Name: "Bolton Bathrooms Ltd", Address: "1 High St, Bolton", Website: "https://boltonbathrooms.co.uk"}

	tests := []struct {
		name string
		id   BusinessIdentity
	}{
		{"case", BusinessIdentity{Name: "BOLTON bathrooms ltd", Address: "1 high st, BOLTON", Website: "https://BoltonBathrooms.co.uk"}},
		{"whitespace", BusinessIdentity{Name: "  Bolton   Bathrooms Ltd ", Address: "1 High St,  Bolton", Website: "https://boltonbathrooms.co.uk"}},
		{"www and slash", BusinessIdentity{Name: "Bolton Bathrooms Ltd", Address: "1 High St, Bolton", Website: "http://www.boltonbathrooms.co.uk/"}},
		{"place id ignored", BusinessIdentity{Name: "Bolton Bathrooms Ltd", Address: "1 High St, Bolton", Website: "https://boltonbathrooms.co.uk", PlaceID: "abc123"}},
	}

	want := base.Fingerprint()
	require.Len(t, want, 64)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, want, tt.id.Fingerprint())
		})
	}
}

func TestFingerprint_DistinguishesAddress(t *testing.T) {
	t.Parallel()

	a := BusinessIdentity{Name: "Acme Plumbing", Address: "Leeds"}
	b := BusinessIdentity{Name: "Acme Plumbing", Address: "York"}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestBusinessIdentity_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, BusinessIdentity{Name: "Acme"}.Valid())
	assert.False(t, BusinessIdentity{Name: "   "}.Valid())
	assert.False(t, BusinessIdentity{}.Valid())
}

func TestParsePlatformKey(t *testing.T) {
	t.Parallel()

	k, err := ParsePlatformKey(" Facebook ")
	require.NoError(t, err)
	assert.Equal(t, PlatformFacebook, k)

	_, err = ParsePlatformKey("myspace")
	assert.Error(t, err)
}

func TestCascadePlatforms_ExcludesGoogle(t *testing.T) {
	t.Parallel()

	cascade := CascadePlatforms()
	assert.Len(t, cascade, len(AllPlatforms())-1)
	assert.NotContains(t, cascade, PlatformGoogle)
	assert.Equal(t, PlatformFacebook, cascade[0])
}

func TestPlatformResultSet_KeysInPriorityOrder(t *testing.T) {
	t.Parallel()

	s := PlatformResultSet{
		PlatformYell:     {Source: SourceSearch},
		PlatformGoogle:   {Source: SourceDirect},
		PlatformFacebook: {Source: SourceScrape},
	}
	assert.Equal(t, []PlatformKey{PlatformGoogle, PlatformFacebook, PlatformYell}, s.Keys())
	assert.True(t, s.Resolved(PlatformYell))
	assert.False(t, s.Resolved(PlatformTwitter))
}

func TestPlatformResultSet_MergeAndClone(t *testing.T) {
	t.Parallel()

	s := PlatformResultSet{PlatformGoogle: {Source: SourceDirect}}
	s.Merge(PlatformResultSet{PlatformFacebook: {ProfileURL: "https://facebook.com/acme", Source: SourceScrape}})
	assert.Equal(t, PlatformFacebook, s[PlatformFacebook].Platform)

	c := s.Clone()
	delete(c, PlatformGoogle)
	assert.True(t, s.Resolved(PlatformGoogle))
}

func TestCacheEntry_Expired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	e := &CacheEntry{ExpiresAt: now.Add(time.Hour)}
	assert.False(t, e.Expired(now))
	assert.True(t, e.Expired(now.Add(time.Hour)))
}

func TestPlatformKey_IsReviewSite(t *testing.T) {
	t.Parallel()

	assert.True(t, PlatformTrustpilot.IsReviewSite())
	assert.False(t, PlatformFacebook.IsReviewSite())
	assert.Equal(t, "TrustATrader", PlatformTrustATrader.DisplayName())
}

func TestPlatformResultSet_JSONRoundTripRestoresPlatform(t *testing.T) {
	set := PlatformResultSet{}
	set.Merge(PlatformResultSet{
		PlatformYell: {ProfileURL: "https://www.yell.com/biz/acme/", Verified: true, Source: SourceSearch},
	})

	data, err := json.Marshal(set)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Platform")

	var got PlatformResultSet
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, PlatformYell, got[PlatformYell].Platform)
	assert.Equal(t, set, got)
}
