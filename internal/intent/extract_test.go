package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medscope/litsearch/pkg/backend"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		env  *backend.Envelope
		want string
	}{
		{
			name: "nil envelope",
			env:  nil,
			want: "",
		},
		{
			name: "provider error",
			env:  &backend.Envelope{Kind: backend.KindChoices, Error: "rate limit exceeded"},
			want: "error: rate limit exceeded",
		},
		{
			name: "choices string content",
			env: &backend.Envelope{
				Kind: backend.KindChoices,
				Choices: []backend.Choice{
					{Message: backend.ChoiceMessage{Content: `  {"query": "diabetes"}  `}},
				},
			},
			want: `{"query": "diabetes"}`,
		},
		{
			name: "choices fragment list",
			env: &backend.Envelope{
				Kind: backend.KindChoices,
				Choices: []backend.Choice{
					{Message: backend.ChoiceMessage{Content: []any{"part one", "part two"}}},
				},
			},
			want: "part one part two",
		},
		{
			name: "choices empty list",
			env:  &backend.Envelope{Kind: backend.KindChoices},
			want: "",
		},
		{
			name: "choices nil content",
			env: &backend.Envelope{
				Kind:    backend.KindChoices,
				Choices: []backend.Choice{{}},
			},
			want: "",
		},
		{
			name: "candidates text",
			env: &backend.Envelope{
				Kind: backend.KindCandidates,
				Candidates: []backend.Candidate{
					{Content: backend.CandidateContent{Parts: []backend.Part{{Text: "gemini says hi"}}}},
				},
			},
			want: "gemini says hi",
		},
		{
			name: "candidates no parts",
			env: &backend.Envelope{
				Kind:       backend.KindCandidates,
				Candidates: []backend.Candidate{{}},
			},
			want: "",
		},
		{
			name: "blocks joined",
			env: &backend.Envelope{
				Kind: backend.KindBlocks,
				Blocks: []backend.Block{
					{Type: "text", Text: "first"},
					{Type: "tool_use", Text: "ignored"},
					{Type: "text", Text: "second"},
				},
			},
			want: "first second",
		},
		{
			name: "unknown kind",
			env:  &backend.Envelope{Kind: "mystery"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractText(tt.env))
		})
	}
}

func TestFlattenFragments(t *testing.T) {
	assert.Equal(t, "", flattenFragments(nil))
	assert.Equal(t, "plain", flattenFragments("plain"))
	assert.Equal(t, "a b", flattenFragments([]any{"a", "b"}))
	assert.Equal(t, "1 x", flattenFragments([]any{1, "x"}))
}
