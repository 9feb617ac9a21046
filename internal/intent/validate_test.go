package intent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validateNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func TestValidateQueryMinLength(t *testing.T) {
	tests := []struct {
		name  string
		query any
		want  string
	}{
		{"missing", nil, "the original request"},
		{"empty", "", "the original request"},
		{"whitespace", "   ", "the original request"},
		{"too short", "ab", "the original request"},
		{"exactly three runes", "abc", "abc"},
		{"normal", "diabetes[MeSH Terms]", "diabetes[MeSH Terms]"},
		{"non-string", 42, "the original request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := RawFields{}
			if tt.query != nil {
				fields["query"] = tt.query
			}
			criteria := validateAt(fields, "the original request", validateNow)
			assert.Equal(t, tt.want, criteria.Query)
		})
	}
}

func TestValidateYearSwap(t *testing.T) {
	criteria := validateAt(RawFields{
		"query":      "diabetes",
		"year_start": float64(2023),
		"year_end":   float64(2018),
	}, "input", validateNow)

	require.NotNil(t, criteria.YearStart)
	require.NotNil(t, criteria.YearEnd)
	assert.Equal(t, 2018, *criteria.YearStart)
	assert.Equal(t, 2023, *criteria.YearEnd)
}

func TestValidateYearEndClamp(t *testing.T) {
	criteria := validateAt(RawFields{
		"query":    "diabetes",
		"year_end": float64(2500),
	}, "input", validateNow)

	require.NotNil(t, criteria.YearEnd)
	assert.Equal(t, 2025, *criteria.YearEnd)
}

func TestValidateYearEndNextYearAllowed(t *testing.T) {
	criteria := validateAt(RawFields{
		"query":    "diabetes",
		"year_end": float64(2026),
	}, "input", validateNow)

	require.NotNil(t, criteria.YearEnd)
	assert.Equal(t, 2026, *criteria.YearEnd)
}

func TestValidateNonIntegralYearDropped(t *testing.T) {
	criteria := validateAt(RawFields{
		"query":      "diabetes",
		"year_start": 2020.5,
	}, "input", validateNow)

	assert.Nil(t, criteria.YearStart)
}

func TestValidateImpactFactor(t *testing.T) {
	criteria := validateAt(RawFields{
		"query":  "diabetes",
		"min_if": float64(20),
		"max_if": float64(5),
	}, "input", validateNow)

	require.NotNil(t, criteria.MinIF)
	require.NotNil(t, criteria.MaxIF)
	assert.Equal(t, 5.0, *criteria.MinIF)
	assert.Equal(t, 20.0, *criteria.MaxIF)
}

func TestValidateImpactFactorClamps(t *testing.T) {
	criteria := validateAt(RawFields{
		"query":  "diabetes",
		"min_if": float64(-5),
		"max_if": float64(500),
	}, "input", validateNow)

	require.NotNil(t, criteria.MinIF)
	require.NotNil(t, criteria.MaxIF)
	assert.Equal(t, 0.0, *criteria.MinIF)
	assert.Equal(t, 100.0, *criteria.MaxIF)
}

func TestValidateZones(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []int
	}{
		{"filters out of range", []any{float64(0), float64(1), float64(5), float64(2)}, []int{1, 2}},
		{"all valid", []any{float64(1), float64(2), float64(3), float64(4)}, []int{1, 2, 3, 4}},
		{"non-list", "zone 1", nil},
		{"non-integral dropped", []any{1.5, float64(3)}, []int{3}},
		{"typed int slice", []int{2, 9}, []int{2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			criteria := validateAt(RawFields{"query": "q??", "cas_zones": tt.in}, "input", validateNow)
			assert.Equal(t, tt.want, criteria.CASZones)
		})
	}
}

func TestValidateQuartiles(t *testing.T) {
	criteria := validateAt(RawFields{
		"query":         "diabetes",
		"jcr_quartiles": []any{"Q1", "Q9", "q1", "Q4"},
	}, "input", validateNow)

	assert.Equal(t, []string{"Q1", "Q4"}, criteria.JCRQuartiles)
}

func TestValidateKeywords(t *testing.T) {
	criteria := validateAt(RawFields{
		"query":    "diabetes",
		"keywords": []any{"  diabetes ", "", "   ", "treatment"},
	}, "input", validateNow)

	assert.Equal(t, []string{"diabetes", "treatment"}, criteria.Keywords)
}

func TestValidateIdempotent(t *testing.T) {
	first := validateAt(RawFields{
		"query":      "diabetes",
		"year_start": float64(2023),
		"year_end":   float64(2018),
		"min_if":     float64(-1),
		"cas_zones":  []any{float64(1), float64(7)},
		"keywords":   []any{" a ", "b"},
	}, "input", validateNow)

	// Feed the validated result back through as raw fields.
	again := RawFields{
		"query":     first.Query,
		"cas_zones": first.CASZones,
		"keywords":  first.Keywords,
	}
	if first.YearStart != nil {
		again["year_start"] = *first.YearStart
	}
	if first.YearEnd != nil {
		again["year_end"] = *first.YearEnd
	}
	if first.MinIF != nil {
		again["min_if"] = *first.MinIF
	}

	second := validateAt(again, "input", validateNow)
	assert.Equal(t, first, second)
}
