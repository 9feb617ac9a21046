package main

import (
	"fmt"
	"strings"

	"github.com/medscope/litsearch/internal/model"
)

// printFilters writes the non-query filter conditions in a readable form.
func printFilters(c model.SearchCriteria) {
	if c.HasYearRange() {
		start, end := "open", "open"
		if c.YearStart != nil {
			start = fmt.Sprintf("%d", *c.YearStart)
		}
		if c.YearEnd != nil {
			end = fmt.Sprintf("%d", *c.YearEnd)
		}
		fmt.Printf("years:     %s - %s\n", start, end)
	}
	if c.HasImpactFactorRange() {
		min, max := "open", "open"
		if c.MinIF != nil {
			min = fmt.Sprintf("%.1f", *c.MinIF)
		}
		if c.MaxIF != nil {
			max = fmt.Sprintf("%.1f", *c.MaxIF)
		}
		fmt.Printf("impact:    %s - %s\n", min, max)
	}
	if len(c.CASZones) > 0 {
		zones := make([]string, len(c.CASZones))
		for i, z := range c.CASZones {
			zones[i] = fmt.Sprintf("%d", z)
		}
		fmt.Printf("cas zones: %s\n", strings.Join(zones, ", "))
	}
	if len(c.JCRQuartiles) > 0 {
		fmt.Printf("jcr:       %s\n", strings.Join(c.JCRQuartiles, ", "))
	}
	if len(c.Keywords) > 0 {
		fmt.Printf("keywords:  %s\n", strings.Join(c.Keywords, ", "))
	}
}
