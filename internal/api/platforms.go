package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/platform-resolver/internal/model"
	"github.com/sells-group/platform-resolver/internal/resolve"
)

const (
	headerCalls   = "X-Resolver-Calls"
	headerDebugID = "X-Resolver-Debug-Id"
	headerCost    = "X-Resolver-Cost-Usd"
)

type resolveRequest struct {
	BusinessName     string `json:"businessName"`
	Address          string `json:"address,omitempty"`
	Website          string `json:"website,omitempty"`
	PlaceID          string `json:"placeId,omitempty"`
	SkipCache        bool   `json:"skipCache,omitempty"`
	IncludeFallbacks bool   `json:"includeFallbacks,omitempty"`
}

func (r resolveRequest) identity() model.BusinessIdentity {
	return model.BusinessIdentity{
		Name:    strings.TrimSpace(r.BusinessName),
		Address: strings.TrimSpace(r.Address),
		Website: strings.TrimSpace(r.Website),
		PlaceID: strings.TrimSpace(r.PlaceID),
	}
}

func (r resolveRequest) options() resolve.Options {
	return resolve.Options{SkipCache: r.SkipCache, IncludeFallbacks: r.IncludeFallbacks}
}

type resolveResponse struct {
	Success bool                    `json:"success"`
	Data    model.PlatformResultSet `json:"data"`
	Cached  bool                    `json:"cached"`
}

func (s *Server) handleResolvePost(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.resolveOne(w, r, req)
}

func (s *Server) handleResolveGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := resolveRequest{
		BusinessName: q.Get("name"),
		Address:      q.Get("address"),
		Website:      q.Get("website"),
		PlaceID:      q.Get("placeId"),
	}
	for key, dst := range map[string]*bool{"skipCache": &req.SkipCache, "includeFallbacks": &req.IncludeFallbacks} {
		if v := q.Get(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, key+" must be a boolean")
				return
			}
			*dst = b
		}
	}
	s.resolveOne(w, r, req)
}

func (s *Server) resolveOne(w http.ResponseWriter, r *http.Request, req resolveRequest) {
	debugID := uuid.NewString()
	w.Header().Set(headerDebugID, debugID)

	res, err := s.resolver.Resolve(r.Context(), req.identity(), req.options())
	if errors.Is(err, resolve.ErrInvalidIdentity) {
		writeError(w, http.StatusBadRequest, "businessName is required")
		return
	}
	if err != nil {
		zap.L().Error("api: resolve failed", zap.String("debug_id", debugID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.setTelemetryHeaders(w, res.Telemetry)
	writeJSON(w, http.StatusOK, resolveResponse{Success: true, Data: res.Set, Cached: res.Cached})
}

func (s *Server) setTelemetryHeaders(w http.ResponseWriter, t model.CallTelemetry) {
	if b, err := json.Marshal(t); err == nil {
		w.Header().Set(headerCalls, string(b))
	}
	w.Header().Set(headerCost, strconv.FormatFloat(s.costs.Estimate(t), 'f', 4, 64))
}
