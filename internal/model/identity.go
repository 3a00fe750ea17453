package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
)

// BusinessIdentity is the minimal description of a business whose platform
// URLs are being resolved.
type BusinessIdentity struct {
	Name    string `json:"businessName" yaml:"name"`
	Address string `json:"address,omitempty" yaml:"address,omitempty"`
	Website string `json:"website,omitempty" yaml:"website,omitempty"`
	PlaceID string `json:"placeId,omitempty" yaml:"place_id,omitempty"`
}

// Valid reports whether the identity carries a usable business name.
func (b BusinessIdentity) Valid() bool {
	return strings.TrimSpace(b.Name) != ""
}

// WithWebsite returns a copy of b with the website replaced.
func (b BusinessIdentity) WithWebsite(website string) BusinessIdentity {
	b.Website = website
	return b
}

// Fingerprint returns the cache key for the identity: hex SHA-256 of the
// normalized "name|address|website". The place identifier is excluded so a
// lookup with and without it shares one entry.
func (b BusinessIdentity) Fingerprint() string {
	parts := []string{
		foldText(b.Name),
		foldText(b.Address),
		normalizeWebsite(b.Website),
	}
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}

// foldText case-folds s and collapses runs of whitespace. A Caser is
// stateful, so one is built per call.
func foldText(s string) string {
	return strings.Join(strings.Fields(cases.Fold().String(s)), " ")
}

// normalizeWebsite reduces a website to host+path so that scheme, a leading
// "www." and trailing slashes do not split cache entries.
func normalizeWebsite(s string) string {
	s = foldText(s)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	return strings.TrimRight(s, "/")
}
