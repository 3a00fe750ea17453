// Package scrape extracts platform profile links from a business's own
// website.
package scrape

import (
	"context"

	"github.com/sells-group/platform-resolver/internal/model"
)

// LinkSource finds platform links authored on a business website. An
// unreachable or blocked site yields an empty set, never an error.
type LinkSource interface {
	ScrapeLinks(ctx context.Context, websiteURL string) model.PlatformResultSet
}
