package intent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medscope/litsearch/internal/model"
	"github.com/medscope/litsearch/pkg/backend"
)

// mockBackend returns scripted envelopes and counts calls.
type mockBackend struct {
	mu    sync.Mutex
	calls int
	env   *backend.Envelope
	err   error
	delay time.Duration
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Send(ctx context.Context, _ []backend.Message, _ string, _ backend.Params) (*backend.Envelope, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
		}
	}
	return m.env, m.err
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type staticPrompts struct {
	err error
}

func (p staticPrompts) BuildPrompt(text string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "analyze: " + text, nil
}

type memRecorder struct {
	mu   sync.Mutex
	recs []model.Resolution
}

func (r *memRecorder) Record(_ context.Context, rec model.Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func (r *memRecorder) records() []model.Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Resolution(nil), r.recs...)
}

func choicesEnv(content string) *backend.Envelope {
	return &backend.Envelope{
		Kind:    backend.KindChoices,
		Choices: []backend.Choice{{Message: backend.ChoiceMessage{Content: content}}},
	}
}

func TestResolveSuccess(t *testing.T) {
	b := &mockBackend{env: choicesEnv(`{"query": "diabetes[MeSH Terms]", "year_start": 2020, "year_end": 2024}`)}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{})

	criteria := a.Resolve(context.Background(), "recent diabetes research")

	assert.Equal(t, "diabetes[MeSH Terms]", criteria.Query)
	require.NotNil(t, criteria.YearStart)
	assert.Equal(t, 2020, *criteria.YearStart)

	stats := a.PerfStats()
	assert.Equal(t, uint64(1), stats.Analyses)
	assert.Equal(t, uint64(1), stats.BackendCalls)
	assert.Equal(t, uint64(0), stats.Errors)
}

func TestResolveCachesSuccess(t *testing.T) {
	b := &mockBackend{env: choicesEnv(`{"query": "diabetes[MeSH Terms]"}`)}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{})

	first := a.Resolve(context.Background(), "diabetes")
	second := a.Resolve(context.Background(), "diabetes")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, b.callCount(), "second resolve should hit the cache")

	stats := a.PerfStats()
	assert.Equal(t, uint64(2), stats.Analyses)
	assert.Equal(t, uint64(1), stats.CacheHits)
}

func TestResolveBackendErrorFallsBack(t *testing.T) {
	b := &mockBackend{err: eris.New("connection refused")}
	rec := &memRecorder{}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{}, WithHistory(rec))

	criteria := a.Resolve(context.Background(), "diabetes research")

	assert.Equal(t, model.FallbackCriteria("diabetes research"), criteria)
	assert.Equal(t, uint64(1), a.PerfStats().Errors)

	recs := rec.records()
	require.Len(t, recs, 1)
	assert.Equal(t, model.SourceFallback, recs[0].Source)
}

func TestResolveEmptyResponseFallsBack(t *testing.T) {
	b := &mockBackend{env: &backend.Envelope{Kind: backend.KindChoices}}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{})

	criteria := a.Resolve(context.Background(), "diabetes research")

	assert.Equal(t, "diabetes research", criteria.Query)
	assert.Equal(t, uint64(1), a.PerfStats().Errors)
}

func TestResolveDegenerateNotCached(t *testing.T) {
	// Response parses but yields a query identical to the input: a repeat
	// call must go back to the backend instead of serving the cache.
	b := &mockBackend{env: choicesEnv("I cannot produce a query for that.")}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{})

	first := a.Resolve(context.Background(), "mystery request")
	second := a.Resolve(context.Background(), "mystery request")

	assert.Equal(t, "mystery request", first.Query)
	assert.Equal(t, "mystery request", second.Query)
	assert.Equal(t, 2, b.callCount())
	assert.Equal(t, uint64(0), a.PerfStats().CacheHits)
}

func TestResolvePromptBuilderFailureUsesDefault(t *testing.T) {
	b := &mockBackend{env: choicesEnv(`{"query": "still works"}`)}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{err: eris.New("template broken")})

	criteria := a.Resolve(context.Background(), "diabetes")

	assert.Equal(t, "still works", criteria.Query)
}

func TestResolveRecordsHistory(t *testing.T) {
	b := &mockBackend{env: choicesEnv(`{"query": "diabetes[MeSH Terms]", "year_start": 2020, "year_end": 2024}`)}
	rec := &memRecorder{}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{}, WithHistory(rec))

	a.Resolve(context.Background(), "recent diabetes research")

	recs := rec.records()
	require.Len(t, recs, 1)
	assert.Equal(t, "recent diabetes research", recs[0].Input)
	assert.Equal(t, model.SourceBackend, recs[0].Source)
	assert.NotEmpty(t, recs[0].ID)
	assert.Contains(t, recs[0].CompiledQuery, `"2020"[Date - Publication]`)
}

func TestResolveAsync(t *testing.T) {
	b := &mockBackend{env: choicesEnv(`{"query": "async result"}`)}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{})

	ch := a.ResolveAsync(context.Background(), "some request")

	select {
	case criteria := <-ch:
		assert.Equal(t, "async result", criteria.Query)
	case <-time.After(5 * time.Second):
		t.Fatal("async resolution did not complete")
	}
}

func TestResolveBatchOrder(t *testing.T) {
	b := &mockBackend{env: choicesEnv(`{"query": "shared answer"}`)}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{}, WithWorkers(2))

	inputs := []string{"first", "second", "third", "fourth", "fifth"}
	results := a.ResolveBatch(context.Background(), inputs)

	require.Len(t, results, len(inputs))
	for _, criteria := range results {
		assert.Equal(t, "shared answer", criteria.Query)
	}
}

func TestResolveBatchTimeout(t *testing.T) {
	b := &mockBackend{
		env:   choicesEnv(`{"query": "too late"}`),
		delay: 200 * time.Millisecond,
	}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{},
		WithTaskTimeout(20*time.Millisecond),
	)

	results := a.ResolveBatch(context.Background(), []string{"slow request"})

	require.Len(t, results, 1)
	assert.Equal(t, model.FallbackCriteria("slow request"), results[0])
	assert.GreaterOrEqual(t, a.PerfStats().Errors, uint64(1))
}

func TestClearCache(t *testing.T) {
	b := &mockBackend{env: choicesEnv(`{"query": "cached query"}`)}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{})

	a.Resolve(context.Background(), "input")
	a.ClearCache()
	a.Resolve(context.Background(), "input")

	assert.Equal(t, 2, b.callCount())
	assert.Equal(t, 0, a.CacheStats().Size)
}

func TestCacheStatsDisabled(t *testing.T) {
	b := &mockBackend{env: choicesEnv(`{"query": "no cache"}`)}
	a := NewAnalyzer(b, "test-model", backend.Params{}, staticPrompts{}, WithCache(nil))

	a.Resolve(context.Background(), "input")
	a.Resolve(context.Background(), "input")

	assert.Equal(t, 2, b.callCount())
	assert.Equal(t, CacheStats{}, a.CacheStats())
}
