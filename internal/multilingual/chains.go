package multilingual

import "strings"

// DefaultChains are the built-in fallback chains, grouped by language family.
// English is the last resort everywhere and has no chain of its own.
var DefaultChains = map[string][]string{
	// West Slavic
	"cs": {"sk", "en"},
	"sk": {"cs", "en"},
	"pl": {"cs", "sk", "en"},
	// East Slavic
	"uk": {"ru", "en"},
	"ru": {"uk", "en"},
	// Romance
	"es": {"pt", "ca", "en"},
	"pt": {"es", "en"},
	"ca": {"es", "en"},
	"it": {"es", "fr", "en"},
	"fr": {"en"},
	// Germanic
	"de": {"en"},
	"nl": {"de", "en"},
	// Nordic
	"sv": {"no", "da", "en"},
	"no": {"da", "sv", "en"},
	"da": {"no", "sv", "en"},
	"fi": {"sv", "en"},
	// Other
	"hu": {"en"},
	"ja": {"en"},
	"zh": {"en"},
	"ko": {"en"},
}

// Chains resolves the effective fallback chain per language.
type Chains struct {
	overrides map[string][]string
}

// NewChains creates Chains. An override replaces the default chain of
// its language entirely; it is never merged with it.
func NewChains(overrides map[string][]string) Chains {
	c := Chains{overrides: make(map[string][]string, len(overrides))}
	for lang, chain := range overrides {
		c.overrides[normalize(lang)] = append([]string(nil), chain...)
	}
	return c
}

// For returns a copy of the chain for a language; empty when none is defined.
func (c Chains) For(language string) []string {
	language = normalize(language)
	chain, ok := c.overrides[language]
	if !ok {
		chain = DefaultChains[language]
	}
	return append([]string(nil), chain...)
}

func normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}
