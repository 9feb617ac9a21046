package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsMap(t *testing.T) {
	assert.Empty(t, Params{}.Map())

	temp, tokens := 0.1, 1000
	m := Params{Temperature: &temp, MaxTokens: &tokens}.Map()
	assert.Equal(t, map[string]any{"temperature": 0.1, "max_tokens": 1000}, m)

	onlyTemp := Params{Temperature: &temp}.Map()
	assert.Equal(t, map[string]any{"temperature": 0.1}, onlyTemp)
}

func TestDecodeFragments(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{"empty", "", nil},
		{"string", `"hello"`, "hello"},
		{"list", `["a", "b"]`, []any{"a", "b"}},
		{"invalid", `{broken`, nil},
		{"null", `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeFragments(json.RawMessage(tt.raw)))
		})
	}
}
