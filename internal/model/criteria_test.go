package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackCriteria(t *testing.T) {
	c := FallbackCriteria("raw request text")
	assert.Equal(t, "raw request text", c.Query)
	assert.False(t, c.HasYearRange())
	assert.False(t, c.HasImpactFactorRange())
	assert.True(t, c.IsFallbackFor("raw request text"))
	assert.False(t, c.IsFallbackFor("something else"))
}

func TestHasYearRange(t *testing.T) {
	start := 2020
	assert.False(t, SearchCriteria{}.HasYearRange())
	assert.True(t, SearchCriteria{YearStart: &start}.HasYearRange())
	assert.True(t, SearchCriteria{YearEnd: &start}.HasYearRange())
}

func TestCriteriaJSONOmitsUnset(t *testing.T) {
	data, err := json.Marshal(SearchCriteria{Query: "diabetes"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"query": "diabetes"}`, string(data))
}

func TestCriteriaJSONRoundTrip(t *testing.T) {
	start, end := 2020, 2024
	minIF := 5.0
	in := SearchCriteria{
		Query:        "diabetes[MeSH Terms]",
		YearStart:    &start,
		YearEnd:      &end,
		MinIF:        &minIF,
		CASZones:     []int{1, 2},
		JCRQuartiles: []string{"Q1"},
		Keywords:     []string{"diabetes", "treatment"},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out SearchCriteria
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
