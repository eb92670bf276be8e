package prompts

import "github.com/timmy/altseo/internal/domain"

// ============================================================================
// Default Templates
// ============================================================================

// MinimalTemplate asks for alt text only. Used for high-volume batches.
const MinimalTemplate = `You are a {{ai_role}}.
Write alt text (at most {{alt_max_length}} characters) for this image in {{language_name}}.
{{#if post_title}}The image appears in "{{post_title}}".{{/if}}
{{#if filename_hint}}Filename hint: {{filename_hint}}.{{/if}}
Respond with JSON only: {"alt": "...", "score": 0.0-1.0}`

// StandardTemplate is the default variant: all four fields with the core context.
const StandardTemplate = `You are a {{ai_role}}.
{{#if site_context}}Site context: {{site_context}}{{/if}}
{{#if site_topic}}Site topic: {{site_topic}}{{/if}}

Analyze the image and write SEO metadata in {{language_name}} ({{language}}).
{{#if post_title}}
The image is used in the article "{{post_title}}".
{{#if post_excerpt}}Article summary: {{post_excerpt}}{{/if}}
{{#if post_categories}}Categories: {{post_categories}}{{/if}}
{{#if post_tags}}Tags: {{post_tags}}{{/if}}
{{/if}}
{{#if filename_hint}}Filename hint: {{filename_hint}}{{/if}}
{{#if current_alt}}Existing alt text (improve on it, do not copy): {{current_alt}}{{/if}}

Rules:
- alt: 10 to {{alt_max_length}} characters, at least 3 words, never start with "image of" or "photo of"
- caption: one or two sentences, 5 to 30 words
- title: 3 to 6 words, at most 60 characters
- keywords: 3 to 6 unique keywords
- score: your confidence in the result between 0 and 1

Respond with JSON only:
{"alt": "...", "caption": "...", "title": "...", "keywords": ["..."], "score": 0.0}`

// AdvancedTemplate adds embedded photo metadata and multilingual guidance.
const AdvancedTemplate = `You are a {{ai_role}}.
{{#if site_context}}Site context: {{site_context}}{{/if}}
{{#if site_topic}}Site topic: {{site_topic}}{{/if}}

Analyze the image and write SEO metadata in {{language_name}} ({{language}}).
{{#if is_multilingual}}The site is multilingual. Write natively in {{language_name}}, do not translate word for word.{{/if}}

Context:
{{#if post_title}}- Article title: {{post_title}}{{/if}}
{{#if post_excerpt}}- Article summary: {{post_excerpt}}{{/if}}
{{#if post_categories}}- Categories: {{post_categories}}{{/if}}
{{#if post_tags}}- Tags: {{post_tags}}{{/if}}
{{#if filename_hint}}- Filename hint: {{filename_hint}}{{/if}}
{{#if dimensions}}- Dimensions: {{dimensions}} ({{orientation}}){{/if}}
{{#if camera}}- Camera: {{camera}}{{/if}}
{{#if location}}- Location: {{location}}{{/if}}
{{#if date_taken}}- Taken: {{date_taken}}{{/if}}
{{#if copyright}}- Copyright: {{copyright}}{{/if}}
{{#if current_alt}}- Existing alt text: {{current_alt}}{{/if}}

Rules:
- alt: 10 to {{alt_max_length}} characters, at least 3 words, describe what matters for the article, never start with "image of", "picture of", "photo of", "screenshot of" or "graphic of"
- caption: 20 to 300 characters, 5 to 30 words
- title: 3 to 6 words, at most 60 characters
- keywords: 3 to 6 unique keywords relevant for search
- score: your confidence in the result between 0 and 1, lower it when the context contradicts the image

Respond with JSON only:
{"alt": "...", "caption": "...", "title": "...", "keywords": ["..."], "score": 0.0}`

// DefaultTemplates maps each variant to its built-in template.
var DefaultTemplates = map[domain.PromptVariant]string{
	domain.VariantMinimal:  MinimalTemplate,
	domain.VariantStandard: StandardTemplate,
	domain.VariantAdvanced: AdvancedTemplate,
}

// ============================================================================
// Language Names
// ============================================================================

// LanguageNames maps language codes to the English names used in prompts.
var LanguageNames = map[string]string{
	"en": "English",
	"cs": "Czech",
	"sk": "Slovak",
	"pl": "Polish",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"pt": "Portuguese",
	"it": "Italian",
	"nl": "Dutch",
	"hu": "Hungarian",
	"ru": "Russian",
	"uk": "Ukrainian",
	"ca": "Catalan",
	"sv": "Swedish",
	"da": "Danish",
	"no": "Norwegian",
	"fi": "Finnish",
	"ja": "Japanese",
	"zh": "Chinese",
	"ko": "Korean",
}

// LanguageName returns the display name for a code, or the code itself.
func LanguageName(code string) string {
	if name, ok := LanguageNames[code]; ok {
		return name
	}
	return code
}
