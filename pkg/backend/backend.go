// Package backend defines the AI provider abstraction: a Backend sends chat
// messages and returns the provider's raw response as a tagged Envelope, so
// downstream extraction is a match over known shapes instead of speculative
// key lookups.
package backend

import (
	"context"
	"encoding/json"
)

// EnvelopeKind identifies the response shape a backend produced.
type EnvelopeKind string

const (
	// KindChoices is the OpenAI-compatible shape: choices[0].message.content.
	KindChoices EnvelopeKind = "choices"
	// KindCandidates is the Gemini shape: candidates[0].content.parts[0].text.
	KindCandidates EnvelopeKind = "candidates"
	// KindBlocks is the Anthropic shape: a flat list of typed content blocks.
	KindBlocks EnvelopeKind = "blocks"
)

// Message is a single conversational message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Params holds the model parameters sent with each request. The zero value
// means provider defaults.
type Params struct {
	Temperature *float64
	MaxTokens   *int
}

// Map returns the parameter set as a plain map for cache-key derivation.
// Unset parameters are omitted so logically identical sets map identically.
func (p Params) Map() map[string]any {
	m := make(map[string]any, 2)
	if p.Temperature != nil {
		m["temperature"] = *p.Temperature
	}
	if p.MaxTokens != nil {
		m["max_tokens"] = *p.MaxTokens
	}
	return m
}

// Envelope is a tagged union over the response shapes the supported backends
// return. Exactly one of Choices, Candidates or Blocks is populated, selected
// by Kind. Error carries a provider-reported error body; when set, the
// payload fields are empty.
type Envelope struct {
	Kind  EnvelopeKind
	Error string

	Choices    []Choice
	Candidates []Candidate
	Blocks     []Block
}

// Choice is a single completion choice in a choices-style envelope.
type Choice struct {
	Message ChoiceMessage
}

// ChoiceMessage holds the message payload of a choice. Content is either a
// string or a list of fragments, depending on the provider.
type ChoiceMessage struct {
	Role    string
	Content any
}

// Candidate is a single candidate in a candidates-style envelope.
type Candidate struct {
	Content CandidateContent
}

// CandidateContent holds the parts of a candidate.
type CandidateContent struct {
	Parts []Part
}

// Part is one content part. Text is either a string or a list of fragments.
type Part struct {
	Text any
}

// Block is one typed content block in a blocks-style envelope.
type Block struct {
	Type string
	Text string
}

// Backend sends chat messages to an AI provider and returns its raw response
// envelope. Implementations return an error only for transport-level
// failures; provider-reported errors travel in Envelope.Error.
type Backend interface {
	Name() string
	Send(ctx context.Context, messages []Message, modelID string, params Params) (*Envelope, error)
}

// DecodeFragments decodes a raw JSON value that may be a string or a list of
// fragments into an any suitable for ChoiceMessage.Content or Part.Text.
// Invalid input decodes to nil.
func DecodeFragments(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
