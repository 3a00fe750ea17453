package model

import "time"

// CallTelemetry counts external calls made while serving one resolution.
// It is surfaced to callers for cost visibility and never persisted.
type CallTelemetry struct {
	SearchCalls int `json:"searchCalls" yaml:"search_calls"`
	DetailCalls int `json:"detailCalls" yaml:"detail_calls"`
	AICalls     int `json:"aiCalls" yaml:"ai_calls"`
	Total       int `json:"total" yaml:"total"`
}

// ResolutionOutcome is the audit record emitted after each resolution.
type ResolutionOutcome struct {
	ID           string                 `json:"id"`
	Fingerprint  string                 `json:"fingerprint"`
	BusinessName string                 `json:"businessName"`
	Cached       bool                   `json:"cached"`
	Resolved     []PlatformKey          `json:"resolved"`
	Sources      map[PlatformKey]Source `json:"sources"`
	Telemetry    CallTelemetry          `json:"telemetry"`
	Duration     time.Duration          `json:"duration"`
	CreatedAt    time.Time              `json:"createdAt"`
}
