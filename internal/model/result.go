package model

import (
	"encoding/json"
	"time"
)

// Source is the provenance tag of a PlatformResult.
type Source string

const (
	SourceDirect   Source = "direct"   // Deterministically constructed
	SourceScrape   Source = "scrape"   // Linked from the business website
	SourceSearch   Source = "search"   // Search-engine organic result
	SourceAI       Source = "ai"       // Inference backend, probe-verified
	SourceFallback Source = "fallback" // Platform search page, not a profile
)

// PlatformResult is the uniform answer for one platform.
type PlatformResult struct {
	Platform   PlatformKey `json:"-" yaml:"-"`
	ProfileURL string      `json:"profileUrl,omitempty" yaml:"profile_url,omitempty"`
	ReviewURL  string      `json:"reviewUrl,omitempty" yaml:"review_url,omitempty"`
	SearchURL  string      `json:"searchUrl,omitempty" yaml:"search_url,omitempty"`
	MapsURL    string      `json:"mapsUrl,omitempty" yaml:"maps_url,omitempty"`
	Verified   bool        `json:"verified" yaml:"verified"`
	Source     Source      `json:"source" yaml:"source"`
	Note       string      `json:"note,omitempty" yaml:"note,omitempty"`
}

// PlatformResultSet maps each platform with an answer to its result. A
// missing key means no evidence was found.
type PlatformResultSet map[PlatformKey]PlatformResult

// Resolved reports whether the set has an answer for k.
func (s PlatformResultSet) Resolved(k PlatformKey) bool {
	_, ok := s[k]
	return ok
}

// Keys returns the resolved platforms in priority order.
func (s PlatformResultSet) Keys() []PlatformKey {
	var out []PlatformKey
	for _, k := range allPlatforms {
		if _, ok := s[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Merge copies every entry of other into s, overwriting existing keys.
func (s PlatformResultSet) Merge(other PlatformResultSet) {
	for k, v := range other {
		v.Platform = k
		s[k] = v
	}
}

// UnmarshalJSON restores each result's Platform from its map key.
func (s *PlatformResultSet) UnmarshalJSON(data []byte) error {
	var raw map[PlatformKey]PlatformResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(PlatformResultSet, len(raw))
	out.Merge(raw)
	*s = out
	return nil
}

// Clone returns a shallow copy of s.
func (s PlatformResultSet) Clone() PlatformResultSet {
	out := make(PlatformResultSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// CacheEntry is an immutable cached resolution for one fingerprint.
type CacheEntry struct {
	Fingerprint string            `json:"fingerprint"`
	ResultSet   PlatformResultSet `json:"resultSet"`
	CreatedAt   time.Time         `json:"createdAt"`
	ExpiresAt   time.Time         `json:"expiresAt"`
}

// Expired reports whether the entry is past its retention window at now.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}
