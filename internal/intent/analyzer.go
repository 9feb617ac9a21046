package intent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/medscope/litsearch/internal/model"
	"github.com/medscope/litsearch/pkg/backend"
)

// PromptBuilder builds the intent-analysis prompt for a user request.
type PromptBuilder interface {
	BuildPrompt(userText string) (string, error)
}

// Recorder persists completed resolutions. Implementations must be safe for
// concurrent use; failures are logged and never affect resolution.
type Recorder interface {
	Record(ctx context.Context, rec model.Resolution) error
}

// Defaults for analyzer construction.
const (
	defaultCacheSize   = 500
	defaultCacheTTL    = time.Hour
	defaultWorkers     = 4
	defaultTaskTimeout = 60 * time.Second
)

// defaultPromptTemplate is the last-resort prompt used when the configured
// prompt builder fails.
const defaultPromptTemplate = `You are a medical literature search expert. Analyze the research request below and respond with a JSON object containing these fields: query (a PubMed search expression using boolean operators and MeSH terms), year_start, year_end, min_if, max_if, cas_zones, jcr_quartiles, keywords. Omit fields the request does not constrain.

Request: %q`

// Analyzer coordinates intent resolution: cache lookup, prompt construction,
// backend dispatch, extraction, parsing, validation and cache store. Every
// entry point is total: collaborator failures degrade to fallback criteria
// and are never propagated.
type Analyzer struct {
	backend backend.Backend
	modelID string
	params  backend.Params
	prompts PromptBuilder
	cache   *Cache
	history Recorder

	sem         chan struct{} // bounded worker pool for async/batch work
	taskTimeout time.Duration

	mu           sync.Mutex
	analyses     uint64
	cacheHits    uint64
	backendCalls uint64
	errCount     uint64
	totalLatency time.Duration
}

// PerfStats is a snapshot of the analyzer's performance counters. Counters
// are approximate with respect to cache statistics; they are updated by
// whichever goroutine completes a resolution.
type PerfStats struct {
	Analyses     uint64  `json:"analyses"`
	CacheHits    uint64  `json:"cache_hits"`
	BackendCalls uint64  `json:"backend_calls"`
	Errors       uint64  `json:"errors"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithCache replaces the default result cache. A nil cache disables caching.
func WithCache(c *Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithHistory sets a recorder for completed resolutions.
func WithHistory(r Recorder) Option {
	return func(a *Analyzer) { a.history = r }
}

// WithWorkers sets the size of the worker pool used by ResolveAsync and
// ResolveBatch.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.sem = make(chan struct{}, n)
		}
	}
}

// WithTaskTimeout sets the per-task wait bound for batch resolution.
func WithTaskTimeout(d time.Duration) Option {
	return func(a *Analyzer) {
		if d > 0 {
			a.taskTimeout = d
		}
	}
}

// NewAnalyzer creates an analyzer with injected collaborators. The worker
// pool lives and dies with the analyzer value; no hidden global state.
func NewAnalyzer(b backend.Backend, modelID string, params backend.Params, prompts PromptBuilder, opts ...Option) *Analyzer {
	a := &Analyzer{
		backend:     b,
		modelID:     modelID,
		params:      params,
		prompts:     prompts,
		cache:       NewCache(defaultCacheSize, defaultCacheTTL),
		sem:         make(chan struct{}, defaultWorkers),
		taskTimeout: defaultTaskTimeout,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Resolve turns a free-text research request into search criteria. It never
// returns an error: transport failures, malformed responses and undecodable
// output all degrade to fallback criteria with the raw input as the query.
func (a *Analyzer) Resolve(ctx context.Context, text string) model.SearchCriteria {
	start := time.Now()
	a.mu.Lock()
	a.analyses++
	a.mu.Unlock()

	paramsMap := a.params.Map()

	if a.cache != nil {
		if criteria, ok := a.cache.Get(text, a.modelID, paramsMap); ok {
			a.mu.Lock()
			a.cacheHits++
			a.mu.Unlock()
			a.observe(start)
			a.record(ctx, text, criteria, model.SourceCache, start)
			return criteria
		}
	}

	prompt := a.buildPrompt(text)

	a.mu.Lock()
	a.backendCalls++
	a.mu.Unlock()

	env, err := a.backend.Send(ctx, []backend.Message{{Role: "user", Content: prompt}}, a.modelID, a.params)
	if err != nil {
		zap.L().Warn("intent: backend dispatch failed",
			zap.String("backend", a.backend.Name()),
			zap.Error(err),
		)
		return a.fallback(ctx, text, start)
	}

	raw := ExtractText(env)
	if strings.TrimSpace(raw) == "" {
		zap.L().Warn("intent: empty response from backend",
			zap.String("backend", a.backend.Name()),
		)
		return a.fallback(ctx, text, start)
	}

	fields := Parse(raw, text)
	criteria := Validate(fields, text)

	source := model.SourceBackend
	if criteria.IsFallbackFor(text) {
		// A query identical to the raw input means resolution degraded; do
		// not cache it so a repeat call re-attempts resolution.
		source = model.SourceFallback
	} else if a.cache != nil {
		a.cache.Put(text, a.modelID, paramsMap, criteria)
	}

	a.observe(start)
	a.record(ctx, text, criteria, source, start)
	return criteria
}

// ResolveAsync schedules a resolution onto the shared worker pool and returns
// a channel that yields the result without blocking the caller.
func (a *Analyzer) ResolveAsync(ctx context.Context, text string) <-chan model.SearchCriteria {
	out := make(chan model.SearchCriteria, 1)
	go func() {
		select {
		case a.sem <- struct{}{}:
			defer func() { <-a.sem }()
			out <- a.Resolve(ctx, text)
		case <-ctx.Done():
			out <- model.FallbackCriteria(text)
		}
	}()
	return out
}

// ResolveBatch resolves each input on the worker pool and returns results in
// input order. A task that fails or exceeds the per-task timeout contributes
// fallback criteria for its input; the timeout is best-effort and does not
// cancel the underlying backend call.
func (a *Analyzer) ResolveBatch(ctx context.Context, texts []string) []model.SearchCriteria {
	results := make([]model.SearchCriteria, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cap(a.sem))

	for i, text := range texts {
		g.Go(func() error {
			done := make(chan model.SearchCriteria, 1)
			go func() {
				done <- a.Resolve(gctx, text)
			}()

			timer := time.NewTimer(a.taskTimeout)
			defer timer.Stop()

			select {
			case criteria := <-done:
				results[i] = criteria
			case <-timer.C:
				zap.L().Warn("intent: batch task timed out",
					zap.Int("index", i),
					zap.Duration("timeout", a.taskTimeout),
				)
				a.mu.Lock()
				a.errCount++
				a.mu.Unlock()
				results[i] = model.FallbackCriteria(text)
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// CacheStats returns the result cache's counters. Returns the zero value when
// caching is disabled.
func (a *Analyzer) CacheStats() CacheStats {
	if a.cache == nil {
		return CacheStats{}
	}
	return a.cache.Stats()
}

// PerfStats returns a snapshot of the analyzer's performance counters.
func (a *Analyzer) PerfStats() PerfStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := PerfStats{
		Analyses:     a.analyses,
		CacheHits:    a.cacheHits,
		BackendCalls: a.backendCalls,
		Errors:       a.errCount,
	}
	if a.analyses > 0 {
		stats.AvgLatencyMS = float64(a.totalLatency.Milliseconds()) / float64(a.analyses)
	}
	return stats
}

// ClearCache empties the result cache.
func (a *Analyzer) ClearCache() {
	if a.cache != nil {
		a.cache.Clear()
	}
}

func (a *Analyzer) buildPrompt(text string) string {
	prompt, err := a.prompts.BuildPrompt(text)
	if err != nil || strings.TrimSpace(prompt) == "" {
		if err != nil {
			zap.L().Warn("intent: prompt builder failed, using default template", zap.Error(err))
		}
		prompt = fmt.Sprintf(defaultPromptTemplate, text)
	}
	return prompt
}

// fallback accounts an error and returns the degenerate criteria for text.
func (a *Analyzer) fallback(ctx context.Context, text string, start time.Time) model.SearchCriteria {
	a.mu.Lock()
	a.errCount++
	a.mu.Unlock()

	criteria := model.FallbackCriteria(text)
	a.observe(start)
	a.record(ctx, text, criteria, model.SourceFallback, start)
	return criteria
}

func (a *Analyzer) observe(start time.Time) {
	a.mu.Lock()
	a.totalLatency += time.Since(start)
	a.mu.Unlock()
}

// record writes a history entry best-effort.
func (a *Analyzer) record(ctx context.Context, input string, criteria model.SearchCriteria, source string, start time.Time) {
	if a.history == nil {
		return
	}
	rec := model.Resolution{
		ID:            uuid.New().String(),
		Input:         input,
		Criteria:      criteria,
		CompiledQuery: CompileQuery(criteria),
		Source:        source,
		LatencyMS:     time.Since(start).Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}
	if err := a.history.Record(ctx, rec); err != nil {
		zap.L().Warn("intent: history record failed", zap.Error(err))
	}
}
