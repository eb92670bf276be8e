package prompts

import (
	"fmt"
	"os"
	"strings"

	"github.com/timmy/altseo/internal/domain"
	"gopkg.in/yaml.v3"
)

// templateFile is the on-disk layout of custom templates:
//
//	templates:
//	  standard: |
//	    You are a {{ai_role}} ...
type templateFile struct {
	Templates map[string]string `yaml:"templates"`
}

// LoadTemplateFile reads custom templates from a YAML file.
// Parameters:
//   - path: location of the YAML file.
//
// Returns:
//   - map of variant to template text; only non-empty entries are kept.
//   - error: non-nil if the file cannot be read, parsed, or names an unknown variant.
func LoadTemplateFile(path string) (map[domain.PromptVariant]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	return ParseTemplates(raw)
}

// ParseTemplates parses the YAML template document.
func ParseTemplates(raw []byte) (map[domain.PromptVariant]string, error) {
	var file templateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse template file: %w", err)
	}

	out := make(map[domain.PromptVariant]string, len(file.Templates))
	for name, tmpl := range file.Templates {
		variant := domain.PromptVariant(strings.ToLower(strings.TrimSpace(name)))
		if !variant.Valid() {
			return nil, fmt.Errorf("unknown prompt variant %q", name)
		}
		if strings.TrimSpace(tmpl) != "" {
			out[variant] = tmpl
		}
	}
	return out, nil
}
