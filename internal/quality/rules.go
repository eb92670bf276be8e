package quality

// AltRules constrains generated alt text.
type AltRules struct {
	MinLength        int      `mapstructure:"min_length" json:"min_length"`
	MaxLength        int      `mapstructure:"max_length" json:"max_length"`
	MinWords         int      `mapstructure:"min_words" json:"min_words"`
	ForbiddenPhrases []string `mapstructure:"forbidden_phrases" json:"forbidden_phrases"`
}

// CaptionRules constrains generated captions.
type CaptionRules struct {
	MinLength int `mapstructure:"min_length" json:"min_length"`
	MaxLength int `mapstructure:"max_length" json:"max_length"`
	MinWords  int `mapstructure:"min_words" json:"min_words"`
	MaxWords  int `mapstructure:"max_words" json:"max_words"`
}

// TitleRules constrains generated titles.
type TitleRules struct {
	MinWords  int `mapstructure:"min_words" json:"min_words"`
	MaxWords  int `mapstructure:"max_words" json:"max_words"`
	MaxLength int `mapstructure:"max_length" json:"max_length"`
}

// KeywordRules constrains the generated keyword list.
type KeywordRules struct {
	MinCount int `mapstructure:"min_count" json:"min_count"`
	MaxCount int `mapstructure:"max_count" json:"max_count"`
}

// Rules is the full rule set used by the Validator.
type Rules struct {
	Alt      AltRules     `mapstructure:"alt" json:"alt"`
	Caption  CaptionRules `mapstructure:"caption" json:"caption"`
	Title    TitleRules   `mapstructure:"title" json:"title"`
	Keywords KeywordRules `mapstructure:"keywords" json:"keywords"`
}

// DefaultForbiddenPhrases are openings that add nothing for screen readers.
var DefaultForbiddenPhrases = []string{
	"image of",
	"picture of",
	"photo of",
	"screenshot of",
	"graphic of",
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		Alt: AltRules{
			MinLength:        10,
			MaxLength:        125,
			MinWords:         3,
			ForbiddenPhrases: append([]string(nil), DefaultForbiddenPhrases...),
		},
		Caption:  CaptionRules{MinLength: 20, MaxLength: 300, MinWords: 5, MaxWords: 30},
		Title:    TitleRules{MinWords: 3, MaxWords: 6, MaxLength: 60},
		Keywords: KeywordRules{MinCount: 3, MaxCount: 6},
	}
}

// WithDefaults fills every zero-valued limit from DefaultRules.
// A nil forbidden list takes the defaults; an explicit empty list is kept.
func (r Rules) WithDefaults() Rules {
	d := DefaultRules()
	fill := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}
	fill(&r.Alt.MinLength, d.Alt.MinLength)
	fill(&r.Alt.MaxLength, d.Alt.MaxLength)
	fill(&r.Alt.MinWords, d.Alt.MinWords)
	if r.Alt.ForbiddenPhrases == nil {
		r.Alt.ForbiddenPhrases = d.Alt.ForbiddenPhrases
	} else {
		r.Alt.ForbiddenPhrases = append([]string(nil), r.Alt.ForbiddenPhrases...)
	}
	fill(&r.Caption.MinLength, d.Caption.MinLength)
	fill(&r.Caption.MaxLength, d.Caption.MaxLength)
	fill(&r.Caption.MinWords, d.Caption.MinWords)
	fill(&r.Caption.MaxWords, d.Caption.MaxWords)
	fill(&r.Title.MinWords, d.Title.MinWords)
	fill(&r.Title.MaxWords, d.Title.MaxWords)
	fill(&r.Title.MaxLength, d.Title.MaxLength)
	fill(&r.Keywords.MinCount, d.Keywords.MinCount)
	fill(&r.Keywords.MaxCount, d.Keywords.MaxCount)
	return r
}
