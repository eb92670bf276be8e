package quality

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/timmy/altseo/internal/domain"
)

// Penalties subtracted per violated rule.
const (
	penaltyAltShort        = 0.3
	penaltyAltLong         = 0.5
	penaltyForbiddenPhrase = 0.2
	penaltyUnderDescribed  = 0.2

	penaltyCaptionShort = 0.3
	penaltyCaptionLong  = 0.3
	penaltyCaptionWords = 0.2

	penaltyTitleWords = 0.2
	penaltyTitleLong  = 0.3

	penaltyKeywordsFew  = 0.3
	penaltyKeywordsMany = 0.1
	penaltyKeywordsDup  = 0.2
)

// FieldResult is the validation result of one generated field.
// Errors are quality warnings: they lower the score but never stop a run.
type FieldResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
	Score  float64  `json:"score"`
}

// Outcome is the validation result of a full response.
type Outcome struct {
	Fields map[string]FieldResult `json:"fields"`
	Score  float64                `json:"score"`
}

// Valid reports whether every validated field passed all rules.
func (o Outcome) Valid() bool {
	for _, f := range o.Fields {
		if !f.Valid {
			return false
		}
	}
	return true
}

// Warnings flattens the per-field errors as "field: message".
func (o Outcome) Warnings() []string {
	var out []string
	for _, name := range domain.MetadataFields {
		if f, ok := o.Fields[name]; ok {
			for _, e := range f.Errors {
				out = append(out, name+": "+e)
			}
		}
	}
	return out
}

// Validator scores generated metadata against Rules.
type Validator struct {
	rules Rules
}

// NewValidator creates a Validator; zero-valued limits take defaults.
func NewValidator(rules Rules) *Validator {
	return &Validator{rules: rules.WithDefaults()}
}

// Rules returns the effective rule set.
func (v *Validator) Rules() Rules {
	return v.rules
}

// Validate scores each present field and averages the scores.
// Alt is mandatory and scores 0 when absent; other absent fields are
// left out of the mean.
func (v *Validator) Validate(fields domain.GeneratedFields) Outcome {
	out := Outcome{Fields: make(map[string]FieldResult, 4)}

	out.Fields[domain.MetaAlt] = v.validateAlt(fields.Alt)
	if strings.TrimSpace(fields.Caption) != "" {
		out.Fields[domain.MetaCaption] = v.validateCaption(fields.Caption)
	}
	if strings.TrimSpace(fields.Title) != "" {
		out.Fields[domain.MetaTitle] = v.validateTitle(fields.Title)
	}
	if len(fields.Keywords) > 0 {
		out.Fields[domain.MetaKeywords] = v.validateKeywords(fields.Keywords)
	}

	var sum float64
	for _, f := range out.Fields {
		sum += f.Score
	}
	out.Score = clamp(round2(sum / float64(len(out.Fields))))
	return out
}

type check struct {
	errors []string
	score  float64
}

func newCheck() *check { return &check{score: 1} }

func (c *check) fail(penalty float64, format string, args ...interface{}) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
	c.score -= penalty
}

func (c *check) result() FieldResult {
	return FieldResult{
		Valid:  len(c.errors) == 0,
		Errors: c.errors,
		Score:  clamp(round2(c.score)),
	}
}

func (v *Validator) validateAlt(alt string) FieldResult {
	alt = strings.TrimSpace(alt)
	if alt == "" {
		return FieldResult{Valid: false, Errors: []string{"alt text is required"}, Score: 0}
	}
	r := v.rules.Alt
	c := newCheck()

	length := utf8.RuneCountInString(alt)
	if length < r.MinLength {
		c.fail(penaltyAltShort, "too short (%d < %d chars)", length, r.MinLength)
	}
	if length > r.MaxLength {
		c.fail(penaltyAltLong, "too long (%d > %d chars)", length, r.MaxLength)
	}

	lower := strings.ToLower(alt)
	for _, phrase := range r.ForbiddenPhrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase == "" {
			continue
		}
		for i := strings.Count(lower, phrase); i > 0; i-- {
			c.fail(penaltyForbiddenPhrase, "contains forbidden phrase %q", phrase)
		}
	}

	if words := wordCount(alt); words < r.MinWords {
		c.fail(penaltyUnderDescribed, "under-descriptive (%d < %d words)", words, r.MinWords)
	}
	return c.result()
}

func (v *Validator) validateCaption(caption string) FieldResult {
	caption = strings.TrimSpace(caption)
	r := v.rules.Caption
	c := newCheck()

	length := utf8.RuneCountInString(caption)
	if length < r.MinLength {
		c.fail(penaltyCaptionShort, "too short (%d < %d chars)", length, r.MinLength)
	}
	if length > r.MaxLength {
		c.fail(penaltyCaptionLong, "too long (%d > %d chars)", length, r.MaxLength)
	}
	words := wordCount(caption)
	if words < r.MinWords {
		c.fail(penaltyCaptionWords, "too few words (%d < %d)", words, r.MinWords)
	}
	if words > r.MaxWords {
		c.fail(penaltyCaptionWords, "too many words (%d > %d)", words, r.MaxWords)
	}
	return c.result()
}

func (v *Validator) validateTitle(title string) FieldResult {
	title = strings.TrimSpace(title)
	r := v.rules.Title
	c := newCheck()

	words := wordCount(title)
	if words < r.MinWords {
		c.fail(penaltyTitleWords, "too few words (%d < %d)", words, r.MinWords)
	}
	if words > r.MaxWords {
		c.fail(penaltyTitleWords, "too many words (%d > %d)", words, r.MaxWords)
	}
	if length := utf8.RuneCountInString(title); length > r.MaxLength {
		c.fail(penaltyTitleLong, "too long (%d > %d chars)", length, r.MaxLength)
	}
	return c.result()
}

func (v *Validator) validateKeywords(keywords []string) FieldResult {
	r := v.rules.Keywords
	c := newCheck()

	if len(keywords) < r.MinCount {
		c.fail(penaltyKeywordsFew, "too few keywords (%d < %d)", len(keywords), r.MinCount)
	}
	if len(keywords) > r.MaxCount {
		c.fail(penaltyKeywordsMany, "too many keywords (%d > %d)", len(keywords), r.MaxCount)
	}

	seen := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		key := strings.ToLower(strings.TrimSpace(k))
		if seen[key] {
			c.fail(penaltyKeywordsDup, "duplicate keywords")
			break
		}
		seen[key] = true
	}
	return c.result()
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}
