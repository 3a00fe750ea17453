package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/model"
)

const maxOutcomeLimit = 500

type cachingResponse struct {
	Success       bool `json:"success"`
	Enabled       bool `json:"enabled"`
	RetentionDays int  `json:"retentionDays"`
}

func (s *Server) cachingStatus(r *http.Request) cachingResponse {
	return cachingResponse{
		Success:       true,
		Enabled:       s.cache.Enabled(r.Context()),
		RetentionDays: int(s.cache.Retention().Hours() / 24),
	}
}

func (s *Server) handleGetCaching(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cachingStatus(r))
}

func (s *Server) handleSetCaching(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled must be a boolean")
		return
	}
	if err := s.cache.SetEnabled(r.Context(), *req.Enabled); err != nil {
		zap.L().Error("api: set caching toggle", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update setting")
		return
	}
	zap.L().Info("api: caching toggled", zap.Bool("enabled", *req.Enabled))
	writeJSON(w, http.StatusOK, s.cachingStatus(r))
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	n, err := s.cache.Clear(r.Context())
	if err != nil {
		zap.L().Error("api: clear cache", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "clearedEntries": n})
}

type outcomeView struct {
	ID           string                             `json:"id"`
	BusinessName string                             `json:"businessName"`
	Fingerprint  string                             `json:"fingerprint"`
	Cached       bool                               `json:"cached"`
	Resolved     []model.PlatformKey                `json:"resolved"`
	Sources      map[model.PlatformKey]model.Source `json:"sources"`
	Telemetry    model.CallTelemetry                `json:"telemetry"`
	DurationMS   int64                              `json:"durationMs"`
	CreatedAt    time.Time                          `json:"createdAt"`
}

func (s *Server) handleListOutcomes(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxOutcomeLimit)
	}

	outcomes, err := s.outcomes.ListOutcomes(r.Context(), limit)
	if err != nil {
		zap.L().Error("api: list outcomes", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list outcomes")
		return
	}

	views := make([]outcomeView, len(outcomes))
	for i, o := range outcomes {
		views[i] = outcomeView{
			ID:           o.ID,
			BusinessName: o.BusinessName,
			Fingerprint:  o.Fingerprint,
			Cached:       o.Cached,
			Resolved:     o.Resolved,
			Sources:      o.Sources,
			Telemetry:    o.Telemetry,
			DurationMS:   o.Duration.Milliseconds(),
			CreatedAt:    o.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "outcomes": views})
}
