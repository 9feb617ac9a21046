package intent

import (
	"fmt"
	"strings"

	"github.com/medscope/litsearch/internal/model"
)

// Open-bound sentinels for the PubMed date-range literal.
const (
	openStartYear = 1800
	openEndYear   = 3000
)

// CompileQuery renders criteria into a literal PubMed query string. It is
// deterministic and pure: the same criteria always produce byte-identical
// output.
//
// Impact-factor, CAS-zone, JCR-quartile and keyword filters are intentionally
// not compiled: they apply to journal metadata outside PubMed's query
// language and are enforced by the result-filtering stage downstream. The
// compiled query is the textual query plus the temporal bound only.
func CompileQuery(c model.SearchCriteria) string {
	parts := []string{c.Query}

	if c.HasYearRange() {
		var dateFilter string
		switch {
		case c.YearStart != nil && c.YearEnd != nil:
			dateFilter = fmt.Sprintf("(\"%d\"[Date - Publication] : \"%d\"[Date - Publication])", *c.YearStart, *c.YearEnd)
		case c.YearStart != nil:
			dateFilter = fmt.Sprintf("\"%d\"[Date - Publication] : %d[Date - Publication]", *c.YearStart, openEndYear)
		default:
			dateFilter = fmt.Sprintf("%d[Date - Publication] : \"%d\"[Date - Publication]", openStartYear, *c.YearEnd)
		}
		parts = append(parts, dateFilter)
	}

	fragments := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		fragments = append(fragments, "("+p+")")
	}

	return strings.Join(fragments, " AND ")
}
