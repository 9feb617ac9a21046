package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/medscope/litsearch/internal/config"
	"github.com/medscope/litsearch/internal/intent"
	"github.com/medscope/litsearch/internal/prompt"
	"github.com/medscope/litsearch/internal/store"
	anthropicpkg "github.com/medscope/litsearch/pkg/anthropic"
	"github.com/medscope/litsearch/pkg/backend"
	"github.com/medscope/litsearch/pkg/gemini"
	"github.com/medscope/litsearch/pkg/openai"
	"github.com/medscope/litsearch/pkg/pubmed"
)

// analyzerEnv holds the initialized analyzer and its collaborators needed by
// the resolve/batch/stats/history/serve commands.
type analyzerEnv struct {
	Analyzer *intent.Analyzer
	Store    store.Store // nil when history is disabled
	PubMed   pubmed.Client
}

// Close releases resources held by the environment.
func (ae *analyzerEnv) Close() {
	if ae.Store != nil {
		_ = ae.Store.Close()
	}
}

// initAnalyzer builds the backend client, prompt builder, optional history
// store, and the analyzer. Extra options are applied last and override the
// configured ones. Callers should defer env.Close().
func initAnalyzer(ctx context.Context, extra ...intent.Option) (*analyzerEnv, error) {
	b, err := newBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	prompts, err := prompt.Load(cfg.Prompts.File)
	if err != nil {
		return nil, err
	}

	var st store.Store
	if cfg.Store.Path != "" {
		sqlStore, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		if err := sqlStore.Migrate(ctx); err != nil {
			_ = sqlStore.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		st = sqlStore
	} else {
		zap.L().Debug("store path empty, history disabled")
	}

	params := backend.Params{}
	if cfg.Backend.Temperature != 0 {
		t := cfg.Backend.Temperature
		params.Temperature = &t
	}
	if cfg.Backend.MaxTokens != 0 {
		m := cfg.Backend.MaxTokens
		params.MaxTokens = &m
	}

	opts := []intent.Option{
		intent.WithCache(intent.NewCache(cfg.Cache.Size, time.Duration(cfg.Cache.TTLSecs)*time.Second)),
		intent.WithWorkers(cfg.Batch.Workers),
		intent.WithTaskTimeout(time.Duration(cfg.Batch.TaskTimeoutSecs) * time.Second),
	}
	if st != nil {
		opts = append(opts, intent.WithHistory(st))
	}
	opts = append(opts, extra...)

	analyzer := intent.NewAnalyzer(b, cfg.Backend.Model, params, prompts, opts...)

	pm := pubmed.NewClient(
		pubmed.WithBaseURL(cfg.PubMed.BaseURL),
		pubmed.WithRateLimit(cfg.PubMed.RatePerSec, 1),
		pubmed.WithIdentity(cfg.PubMed.Tool, cfg.PubMed.Email),
	)

	return &analyzerEnv{
		Analyzer: analyzer,
		Store:    st,
		PubMed:   pm,
	}, nil
}

// newBackend selects the chat backend named by config.
func newBackend(bc config.BackendConfig) (backend.Backend, error) {
	if bc.Key == "" {
		return nil, eris.Errorf("backend %q requires LITSEARCH_BACKEND_KEY", bc.Kind)
	}

	switch bc.Kind {
	case "openai":
		var opts []openai.Option
		if bc.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(bc.BaseURL))
		}
		return openai.NewClient(bc.Key, opts...), nil
	case "gemini":
		var opts []gemini.Option
		if bc.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(bc.BaseURL))
		}
		return gemini.NewClient(bc.Key, opts...), nil
	case "anthropic":
		return anthropicpkg.NewClient(bc.Key), nil
	default:
		return nil, eris.Errorf("unknown backend kind %q (want openai, gemini or anthropic)", bc.Kind)
	}
}
