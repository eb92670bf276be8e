package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/timmy/altseo/internal/domain"
)

// ParseContent extracts generated fields from model output.
// Parameters:
//   - content: raw text returned by the model; may be wrapped in code fences
//     or surrounded by prose.
//
// Returns:
//   - domain.GeneratedFields: parsed fields, keywords accept an array or a comma separated string.
//   - *float64: self-reported score normalized to [0,1], nil when absent or not numeric.
//   - error: non-nil when no JSON object can be found.
func ParseContent(content string) (domain.GeneratedFields, *float64, error) {
	var fields domain.GeneratedFields

	raw := extractJSON(content)
	if raw == "" {
		return fields, nil, errors.New("no JSON object in response")
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fields, nil, fmt.Errorf("invalid JSON in response: %w", err)
	}

	fields.Alt = firstString(doc, "alt", "alt_text", "altText")
	fields.Caption = firstString(doc, "caption")
	fields.Title = firstString(doc, "title")
	fields.Keywords = keywords(doc["keywords"])

	score := firstNumber(doc, "score", "confidence", "quality_score")
	return fields, score, nil
}

func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func firstString(doc map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := doc[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func keywords(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, k := range list {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return domain.SplitKeywords(joined)
	}
	return nil
}

func firstNumber(doc map[string]json.RawMessage, keys ...string) *float64 {
	for _, k := range keys {
		raw, ok := doc[k]
		if !ok {
			continue
		}
		if v, ok := parseNumber(raw); ok {
			if v, ok = normalizeScore(v); ok {
				return &v
			}
			return nil
		}
	}
	return nil
}

func parseNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// normalizeScore maps percentage scores (1, 100] to [0,1]. NaN, infinities
// and anything else outside [0,1] are rejected.
func normalizeScore(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if v > 1 && v <= 100 {
		v /= 100
	}
	if v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}
