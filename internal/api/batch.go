package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/resolve"
)

type batchRequest struct {
	Businesses      []resolveRequest `json:"businesses"`
	ClearCacheFirst bool             `json:"clearCacheFirst,omitempty"`
}

type batchItem struct {
	BusinessName string                  `json:"businessName"`
	Success      bool                    `json:"success"`
	Data         model.PlatformResultSet `json:"data,omitempty"`
	Error        string                  `json:"error,omitempty"`
	Cached       bool                    `json:"cached"`
}

type batchStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Cached    int `json:"cached"`
}

type batchResponse struct {
	Success bool        `json:"success"`
	Results []batchItem `json:"results"`
	Stats   batchStats  `json:"stats"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Businesses) == 0 {
		writeError(w, http.StatusBadRequest, "businesses must not be empty")
		return
	}
	if len(req.Businesses) > s.batchLimit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d businesses per batch", s.batchLimit))
		return
	}

	ctx := r.Context()
	if req.ClearCacheFirst {
		n, err := s.cache.Clear(ctx)
		if err != nil {
			zap.L().Error("api: clear cache before batch", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to clear cache")
			return
		}
		zap.L().Info("api: cache cleared before batch", zap.Int64("entries", n))
	}

	results := make([]batchItem, len(req.Businesses))
	calls := make([]model.CallTelemetry, len(req.Businesses))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i, b := range req.Businesses {
		g.Go(func() error {
			item := batchItem{BusinessName: b.BusinessName}
			res, err := s.resolver.Resolve(gctx, b.identity(), b.options())
			switch {
			case errors.Is(err, resolve.ErrInvalidIdentity):
				item.Error = "businessName is required"
			case err != nil:
				item.Error = "internal error"
				zap.L().Error("api: batch resolve failed", zap.String("business", b.BusinessName), zap.Error(err))
			default:
				item.Success = true
				item.Data = res.Set
				item.Cached = res.Cached
			}
			results[i] = item
			if res != nil {
				calls[i] = res.Telemetry
			}
			return nil
		})
	}
	_ = g.Wait()

	var (
		stats  batchStats
		totals model.CallTelemetry
	)
	stats.Total = len(results)
	for i, item := range results {
		totals.SearchCalls += calls[i].SearchCalls
		totals.DetailCalls += calls[i].DetailCalls
		totals.AICalls += calls[i].AICalls
		totals.Total += calls[i].Total
		if item.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
		if item.Cached {
			stats.Cached++
		}
	}
	s.setTelemetryHeaders(w, totals)
	writeJSON(w, http.StatusOK, batchResponse{Success: true, Results: results, Stats: stats})
}
