package intent

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/medscope/litsearch/pkg/backend"
)

// ExtractText normalizes a backend response envelope into plain text.
//
// A provider-reported error yields a synthetic diagnostic string so downstream
// logging stays informative; the parser still handles it without crashing.
// Any structural mismatch (missing payload, empty collections) degrades to an
// empty string; extraction never fails.
func ExtractText(env *backend.Envelope) string {
	if env == nil {
		return ""
	}
	if env.Error != "" {
		return "error: " + env.Error
	}

	switch env.Kind {
	case backend.KindChoices:
		if len(env.Choices) == 0 {
			return ""
		}
		return strings.TrimSpace(flattenFragments(env.Choices[0].Message.Content))

	case backend.KindCandidates:
		if len(env.Candidates) == 0 {
			return ""
		}
		parts := env.Candidates[0].Content.Parts
		if len(parts) == 0 {
			return ""
		}
		return strings.TrimSpace(flattenFragments(parts[0].Text))

	case backend.KindBlocks:
		var b strings.Builder
		for _, bl := range env.Blocks {
			if bl.Type != "text" || bl.Text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString(" ")
			}
			b.WriteString(bl.Text)
		}
		return strings.TrimSpace(b.String())

	default:
		zap.L().Debug("intent: unknown envelope kind", zap.String("kind", string(env.Kind)))
		return ""
	}
}

// flattenFragments renders a content value that may be a single string or a
// list of fragments; list fragments are joined with spaces.
func flattenFragments(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		frags := make([]string, 0, len(t))
		for _, item := range t {
			frags = append(frags, fmt.Sprint(item))
		}
		return strings.Join(frags, " ")
	default:
		return fmt.Sprint(t)
	}
}
