package intent

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/medscope/litsearch/internal/model"
)

// minQueryLen is the shortest parsed query accepted before substituting the
// original input.
const minQueryLen = 3

// Validate repairs raw parsed fields into a well-formed SearchCriteria. It is
// pure and total: inconsistent ranges are swapped, out-of-bound values are
// clamped, out-of-domain enum values are dropped, and a missing or degenerate
// query is replaced by the original input. Re-validating a validated result
// is a no-op.
func Validate(fields RawFields, originalInput string) model.SearchCriteria {
	return validateAt(fields, originalInput, time.Now())
}

func validateAt(fields RawFields, originalInput string, now time.Time) model.SearchCriteria {
	criteria := model.SearchCriteria{}

	query := strings.TrimSpace(asString(fields["query"]))
	if len([]rune(query)) < minQueryLen {
		query = originalInput
	}
	criteria.Query = query

	yearStart := asInt(fields["year_start"])
	yearEnd := asInt(fields["year_end"])
	if yearStart != nil && yearEnd != nil && *yearStart > *yearEnd {
		yearStart, yearEnd = yearEnd, yearStart
	}
	currentYear := now.Year()
	if yearEnd != nil && *yearEnd > currentYear+1 {
		clamped := currentYear
		yearEnd = &clamped
	}
	criteria.YearStart = yearStart
	criteria.YearEnd = yearEnd

	minIF := asFloat(fields["min_if"])
	maxIF := asFloat(fields["max_if"])
	if minIF != nil && maxIF != nil && *minIF > *maxIF {
		minIF, maxIF = maxIF, minIF
	}
	if minIF != nil && *minIF < 0 {
		zero := 0.0
		minIF = &zero
	}
	if maxIF != nil && *maxIF > 100 {
		hundred := 100.0
		maxIF = &hundred
	}
	criteria.MinIF = minIF
	criteria.MaxIF = maxIF

	criteria.CASZones = filterZones(fields["cas_zones"])
	criteria.JCRQuartiles = filterQuartiles(fields["jcr_quartiles"])
	criteria.Keywords = filterKeywords(fields["keywords"])

	return criteria
}

// filterZones keeps only integers in [1,4]; non-list input yields nil.
func filterZones(v any) []int {
	list, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]int); ok {
			var zones []int
			for _, z := range typed {
				if z >= 1 && z <= 4 {
					zones = append(zones, z)
				}
			}
			return zones
		}
		return nil
	}
	var zones []int
	for _, item := range list {
		z := asInt(item)
		if z != nil && *z >= 1 && *z <= 4 {
			zones = append(zones, *z)
		}
	}
	return zones
}

// filterQuartiles keeps only members of {Q1..Q4}; non-list input yields nil.
func filterQuartiles(v any) []string {
	valid := map[string]bool{"Q1": true, "Q2": true, "Q3": true, "Q4": true}
	var quartiles []string
	for _, item := range asList(v) {
		q := asString(item)
		if valid[q] {
			quartiles = append(quartiles, q)
		}
	}
	return quartiles
}

// filterKeywords trims each element, drops empties, and preserves order.
func filterKeywords(v any) []string {
	var keywords []string
	for _, item := range asList(v) {
		kw := strings.TrimSpace(norm.NFC.String(asString(item)))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// --- loose type coercion over decoded JSON values ---

func asList(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) *int {
	switch t := v.(type) {
	case int:
		return &t
	case int64:
		i := int(t)
		return &i
	case float64:
		i := int(t)
		if float64(i) != t {
			return nil
		}
		return &i
	default:
		return nil
	}
}

func asFloat(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case int64:
		f := float64(t)
		return &f
	default:
		return nil
	}
}
