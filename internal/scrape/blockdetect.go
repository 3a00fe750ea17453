package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot interstitial detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
)

// challengePageMax is the largest body still treated as a bare challenge
// page. Real business pages routinely embed reCAPTCHA on contact forms, so
// captcha markers only count on small pages.
const challengePageMax = 8 * 1024

// DetectBlock checks a response for signs that the site served an anti-bot
// interstitial instead of its homepage.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" {
			return true, BlockCloudflare
		}
		if strings.EqualFold(resp.Header.Get("server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cf-challenge") {
		return true, BlockCloudflare
	}

	if len(body) < challengePageMax && strings.Contains(lower, "captcha") {
		return true, BlockCaptcha
	}

	return false, BlockNone
}
