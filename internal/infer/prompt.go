package infer

import (
	"fmt"
	"strings"

	"github.com/sells-group/platform-resolver/internal/model"
)

// NotFound is the sentinel a backend answers with when it has no URL.
const NotFound = "NOT_FOUND"

// BuildPrompt renders the lookup prompt for one platform. Address and
// website lines are omitted when empty.
func BuildPrompt(name string, k model.PlatformKey, address, website string) string {
	platform := k.DisplayName()

	var b strings.Builder
	fmt.Fprintf(&b, "Find the exact %s review page URL for this business:\n", platform)
	fmt.Fprintf(&b, "Business Name: %s\n", name)
	if address != "" {
		fmt.Fprintf(&b, "Address: %s\n", address)
	}
	if website != "" {
		fmt.Fprintf(&b, "Website: %s\n", website)
	}
	b.WriteString("\nInstructions:\n")
	fmt.Fprintf(&b, "- Search for their official %s page\n", platform)
	fmt.Fprintf(&b, "- Return ONLY the direct %s review/profile URL\n", platform)
	b.WriteString("- For Trustpilot, it should be in format: https://www.trustpilot.com/review/domain-name\n")
	fmt.Fprintf(&b, "- If you cannot find a verified page, return %q\n", NotFound)
	b.WriteString("- Do not guess or make up URLs\n")
	fmt.Fprintf(&b, "- Verify the business actually has a %s presence\n", platform)
	fmt.Fprintf(&b, "\nResponse format: Just the URL or %q", NotFound)
	return b.String()
}

// usable reports whether a raw backend answer looks like a URL worth
// verifying.
func usable(answer string) bool {
	return answer != "" && answer != NotFound && strings.HasPrefix(answer, "http")
}
