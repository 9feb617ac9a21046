// Package store persists resolution history so past analyses can be listed
// and aggregated without re-calling the AI backend.
package store

import (
	"context"

	"github.com/medscope/litsearch/internal/model"
)

// Summary aggregates the recorded resolution history.
type Summary struct {
	Total        int     `json:"total"`
	FromCache    int     `json:"from_cache"`
	FromBackend  int     `json:"from_backend"`
	FromFallback int     `json:"from_fallback"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// Store defines the persistence interface for resolution history.
type Store interface {
	Record(ctx context.Context, res model.Resolution) error
	List(ctx context.Context, limit int) ([]model.Resolution, error)
	Summarize(ctx context.Context) (*Summary, error)

	Migrate(ctx context.Context) error
	Close() error
}
