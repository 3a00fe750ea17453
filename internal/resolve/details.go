package resolve

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/resilience"
	"github.com/sells-group/platform-resolver/internal/telemetry"
	"github.com/sells-group/platform-resolver/pkg/google"
)

// PlaceDetailer looks up a place by id. google.Client satisfies it.
type PlaceDetailer interface {
	PlaceDetails(ctx context.Context, placeID string) (*google.PlaceDetails, error)
}

const detailsTimeout = 5 * time.Second

// backfillWebsite fills a missing website from the place record. Every
// attempt counts as a detail call; failures leave the identity unchanged.
func (r *Resolver) backfillWebsite(ctx context.Context, id model.BusinessIdentity) model.BusinessIdentity {
	if r.details == nil || strings.TrimSpace(id.Website) != "" || strings.TrimSpace(id.PlaceID) == "" {
		return id
	}
	start := time.Now()
	log := zap.L().With(zap.String("stage", telemetry.StageDetails), zap.String("place_id", id.PlaceID))

	ctx, cancel := context.WithTimeout(ctx, detailsTimeout)
	defer cancel()

	details, err := resilience.DoVal(ctx, r.retry, func(ctx context.Context) (*google.PlaceDetails, error) {
		telemetry.FromContext(ctx).AddDetail()
		d, err := r.details.PlaceDetails(ctx, id.PlaceID)
		var se *google.StatusError
		if errors.As(err, &se) {
			return nil, resilience.ClassifyStatus(err, se.StatusCode)
		}
		return d, err
	})
	if err != nil {
		log.Debug("resolve: place details failed", zap.Error(eris.Wrap(err, "resolve: place details")))
		telemetry.ObserveStage(telemetry.StageDetails, telemetry.OutcomeError, start)
		return id
	}
	if details == nil || details.WebsiteURI == "" {
		telemetry.ObserveStage(telemetry.StageDetails, telemetry.OutcomeNotFound, start)
		return id
	}
	log.Debug("resolve: website from place details", zap.String("website", details.WebsiteURI))
	telemetry.ObserveStage(telemetry.StageDetails, telemetry.OutcomeFound, start)
	return id.WithWebsite(details.WebsiteURI)
}
