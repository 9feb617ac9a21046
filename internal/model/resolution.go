package model

import "time"

// Resolution sources.
const (
	SourceCache    = "cache"
	SourceBackend  = "backend"
	SourceFallback = "fallback"
)

// Resolution records one completed intent resolution for the history store.
type Resolution struct {
	ID            string         `json:"id"`
	Input         string         `json:"input"`
	Criteria      SearchCriteria `json:"criteria"`
	CompiledQuery string         `json:"compiled_query"`
	Source        string         `json:"source"`
	LatencyMS     int64          `json:"latency_ms"`
	CreatedAt     time.Time      `json:"created_at"`
}
