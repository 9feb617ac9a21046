// Package prompt builds the intent-analysis prompt sent to the AI backend.
// Templates load from a YAML file when one is configured; the built-in
// default covers the common case and any load or rendering failure.
package prompt

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// intentTemplateKey names the template used for intent analysis.
const intentTemplateKey = "intent_analysis"

// minTemplateLen guards against empty or truncated template files: anything
// shorter after rendering falls back to the built-in prompt.
const minTemplateLen = 100

// Builder renders intent-analysis prompts.
type Builder struct {
	templates map[string]string
	now       func() time.Time
}

// NewBuilder creates a Builder with only the built-in default template.
func NewBuilder() *Builder {
	return &Builder{
		templates: map[string]string{},
		now:       time.Now,
	}
}

// Load reads named templates from a YAML file mapping template names to
// bodies. A missing file is not an error; the built-in default covers it.
func Load(path string) (*Builder, error) {
	b := NewBuilder()
	if path == "" {
		return b, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Info("prompt: template file not found, using built-in defaults",
				zap.String("path", path),
			)
			return b, nil
		}
		return nil, eris.Wrapf(err, "prompt: read %s", path)
	}

	if err := yaml.Unmarshal(data, &b.templates); err != nil {
		return nil, eris.Wrapf(err, "prompt: parse %s", path)
	}
	return b, nil
}

// WithNow sets a fixed clock for testing.
func (b *Builder) WithNow(now func() time.Time) *Builder {
	b.now = now
	return b
}

// BuildPrompt renders the intent-analysis prompt for a user request. A
// configured template wins when it renders to something substantive;
// otherwise the built-in default is used.
func (b *Builder) BuildPrompt(userText string) (string, error) {
	if tpl, ok := b.templates[intentTemplateKey]; ok {
		rendered := b.render(tpl, userText)
		if len(strings.TrimSpace(rendered)) >= minTemplateLen {
			return rendered, nil
		}
		zap.L().Warn("prompt: configured template renders too short, using built-in default",
			zap.Int("rendered_len", len(rendered)),
		)
	}
	return b.defaultPrompt(userText), nil
}

// render substitutes the supported placeholders into a template body.
func (b *Builder) render(tpl, userText string) string {
	now := b.now()
	return strings.NewReplacer(
		"{user_input}", userText,
		"{current_date}", now.Format("2006-01-02"),
		"{current_year}", fmt.Sprintf("%d", now.Year()),
	).Replace(tpl)
}

const defaultIntentPrompt = `You are a medical literature search expert. Analyze the user's retrieval request and produce a PubMed search expression plus filter conditions.

Current date: %s (year %d)
User request: %q

Analyze the intent and output the result as JSON with these fields:

1. "query": PubMed search expression (boolean operators AND, OR, NOT; prefer MeSH terms)
2. "year_start": start year (integer, only if the request constrains dates)
3. "year_end": end year (integer, only if the request constrains dates)
4. "min_if": minimum journal impact factor (number, only if requested)
5. "max_if": maximum journal impact factor (number, only if requested)
6. "cas_zones": CAS zone restriction (list of integers 1-4, e.g. [1,2] for zones 1 and 2)
7. "jcr_quartiles": JCR quartile restriction (list of strings, e.g. ["Q1","Q2"])
8. "keywords": important keywords extracted from the request (list of strings)

Analysis rules:
- Identify diseases, treatments, drugs and other medical concepts; translate non-English terms to English and MeSH vocabulary, adding close synonyms.
- Resolve relative date expressions against the current date (%d):
  - "recent" or "in recent years": %d-%d
  - "last 3 years": %d-%d
  - "last 5 years" / "past 5 years": %d-%d
  - "last 10 years": %d-%d
  - "since 2020" / "during the pandemic": 2020-%d
- Impact factor: "high impact" means min_if 5.0; "top journals" means min_if 10.0.
- Zone rules:
  - Output cas_zones only when the request explicitly mentions CAS zones.
  - Output jcr_quartiles only when the request explicitly mentions JCR quartiles.
  - "High impact factor" alone sets only min_if; never add zone restrictions for it.

Example:
Request: "latest research on diabetes treatment, last 5 years, high-impact journals"
Output:
` + "```json" + `
{
  "query": "(diabetes mellitus[MeSH Terms] OR diabetes[Title/Abstract]) AND (treatment[MeSH Terms] OR therapy[Title/Abstract])",
  "year_start": %d,
  "year_end": %d,
  "min_if": 5.0,
  "keywords": ["diabetes", "treatment", "therapy"]
}
` + "```" + `

Analyze the user request above and output only the JSON result, with accurate year arithmetic:`

// defaultPrompt renders the built-in intent-analysis template.
func (b *Builder) defaultPrompt(userText string) string {
	now := b.now()
	year := now.Year()
	return fmt.Sprintf(defaultIntentPrompt,
		now.Format("2006-01-02"), year,
		userText,
		year,
		year-2, year,
		year-2, year,
		year-4, year,
		year-9, year,
		year,
		year-4, year,
	)
}
