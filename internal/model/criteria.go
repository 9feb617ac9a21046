package model

// SearchCriteria is the resolved search intent for a single research request:
// a PubMed boolean query plus optional publication-year, impact-factor,
// journal-tier and keyword filters. A value is built once per resolution and
// never mutated afterwards.
type SearchCriteria struct {
	// Query is the PubMed search expression (boolean operators, MeSH terms).
	// Always non-empty; degrades to the raw user input when resolution fails.
	Query string `json:"query"`

	// YearStart and YearEnd bound the publication date range (inclusive).
	YearStart *int `json:"year_start,omitempty"`
	YearEnd   *int `json:"year_end,omitempty"`

	// MinIF and MaxIF bound the journal impact factor.
	MinIF *float64 `json:"min_if,omitempty"`
	MaxIF *float64 `json:"max_if,omitempty"`

	// CASZones restricts to CAS journal-ranking zones (1-4, 1 = highest).
	CASZones []int `json:"cas_zones,omitempty"`

	// JCRQuartiles restricts to JCR quartiles ("Q1"-"Q4", Q1 = highest).
	JCRQuartiles []string `json:"jcr_quartiles,omitempty"`

	// Keywords are post-search filter terms, in the order they were given.
	Keywords []string `json:"keywords,omitempty"`
}

// HasYearRange reports whether at least one publication-year bound is set.
func (c SearchCriteria) HasYearRange() bool {
	return c.YearStart != nil || c.YearEnd != nil
}

// HasImpactFactorRange reports whether at least one impact-factor bound is set.
func (c SearchCriteria) HasImpactFactorRange() bool {
	return c.MinIF != nil || c.MaxIF != nil
}

// IsFallbackFor reports whether the criteria is the degenerate fallback for
// the given input, i.e. the query is the raw input echoed back verbatim.
func (c SearchCriteria) IsFallbackFor(input string) bool {
	return c.Query == input
}

// FallbackCriteria returns the minimal valid criteria for an input: the raw
// text as the query with no filters. Used whenever resolution cannot produce
// better structured data.
func FallbackCriteria(input string) SearchCriteria {
	return SearchCriteria{Query: input}
}
