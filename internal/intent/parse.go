package intent

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// RawFields is the unvalidated decode of an AI response, prior to
// normalization. Values keep their decoded JSON types; Validate repairs and
// bounds-checks them into a SearchCriteria.
type RawFields map[string]any

var (
	fencedJSONRe   = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	lineCommentRe  = regexp.MustCompile(`//[^\n]*\n`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	trailingObjRe  = regexp.MustCompile(`,\s*}`)
	trailingArrRe  = regexp.MustCompile(`,\s*]`)
	queryFieldRe   = regexp.MustCompile(`"query"\s*:\s*"([^"]+)"`)
	yearRe         = regexp.MustCompile(`\b(20\d{2})\b`)
)

// maxFallbackQueryLen bounds the query substituted when nothing better can be
// recovered from the response.
const maxFallbackQueryLen = 100

// Parse decodes raw AI output into RawFields through three ordered stages:
// fenced-block extraction, lenient JSON repair with strict decoding, and a
// heuristic text scan. The final stage is total: it always yields at least a
// query field, falling back to originalInput.
func Parse(raw, originalInput string) RawFields {
	candidate := strings.TrimSpace(raw)
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		candidate = m[1]
	}

	cleaned := cleanJSON(candidate)

	var fields RawFields
	if err := json.Unmarshal([]byte(cleaned), &fields); err == nil {
		return fields
	} else {
		preview := raw
		if len(preview) > 200 {
			preview = preview[:200]
		}
		zap.L().Debug("intent: structured decode failed, falling back to heuristics",
			zap.Error(err),
			zap.String("response_preview", preview),
		)
	}

	return heuristicParse(raw, originalInput)
}

// cleanJSON repairs common model output defects: line and block comments,
// single-quoted strings, and trailing commas before closing braces/brackets.
func cleanJSON(s string) string {
	s = lineCommentRe.ReplaceAllString(s, "\n")
	s = blockCommentRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "'", `"`)
	s = trailingObjRe.ReplaceAllString(s, "}")
	s = trailingArrRe.ReplaceAllString(s, "]")
	return strings.TrimSpace(s)
}

// heuristicParse recovers what it can from undecodable text: a query via a
// loose pattern or colon-delimited line scan, and a year range when two or
// more distinct years appear anywhere in the text.
func heuristicParse(raw, originalInput string) RawFields {
	fields := RawFields{}

	query := ""
	if m := queryFieldRe.FindStringSubmatch(raw); m != nil {
		query = m[1]
	} else {
		query = queryFromLines(raw)
	}
	if query == "" {
		query = originalInput
		if r := []rune(query); len(r) > maxFallbackQueryLen {
			query = string(r[:maxFallbackQueryLen])
		}
	}
	fields["query"] = query

	if start, end, ok := yearRange(raw); ok {
		fields["year_start"] = start
		fields["year_end"] = end
	}

	return fields
}

// queryFromLines takes the first colon-delimited value on any line mentioning
// "query". Returns "" when no such line exists.
func queryFromLines(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(strings.ToLower(line), "query") {
			continue
		}
		if _, after, ok := strings.Cut(line, ":"); ok {
			v := strings.TrimSpace(after)
			v = strings.Trim(v, `",`)
			if v != "" {
				return v
			}
		}
	}
	return ""
}

// yearRange extracts the min and max of all distinct four-digit years
// beginning with "20" found in the text. Requires at least two distinct years.
func yearRange(raw string) (start, end int, ok bool) {
	seen := make(map[int]struct{})
	for _, m := range yearRe.FindAllString(raw, -1) {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		seen[y] = struct{}{}
	}
	if len(seen) < 2 {
		return 0, 0, false
	}
	first := true
	for y := range seen {
		if first {
			start, end = y, y
			first = false
			continue
		}
		if y < start {
			start = y
		}
		if y > end {
			end = y
		}
	}
	return start, end, true
}
