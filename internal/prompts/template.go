package prompts

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

const (
	ifOpen  = "{{#if"
	ifClose = "{{/if}}"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)

// Render evaluates a template against data. Conditional blocks are
// resolved first, innermost block first, then {{key}} tokens are
// substituted. Tokens without a value are left verbatim.
// Render has no side effects; the same input always yields the same output.
func Render(tmpl string, data map[string]interface{}) string {
	return substitute(resolveConditionals(tmpl, data), data)
}

// resolveConditionals replaces each block with its body or nothing. A
// {{/if}} with no opener before it, or whose opener is malformed, is kept
// as text and scanning continues after it.
func resolveConditionals(s string, data map[string]interface{}) string {
	from := 0
	for {
		rel := strings.Index(s[from:], ifClose)
		if rel < 0 {
			return s
		}
		closeIdx := from + rel
		openIdx := strings.LastIndex(s[from:closeIdx], ifOpen)
		if openIdx < 0 {
			from = closeIdx + len(ifClose)
			continue
		}
		openIdx += from
		tagEnd := strings.Index(s[openIdx:closeIdx], "}}")
		if tagEnd < 0 {
			from = closeIdx + len(ifClose)
			continue
		}
		tagEnd += openIdx

		key := strings.TrimSpace(s[openIdx+len(ifOpen) : tagEnd])
		body := s[tagEnd+2 : closeIdx]
		if !Truthy(data[key]) {
			body = ""
		}
		s = s[:openIdx] + body + s[closeIdx+len(ifClose):]
	}
}

func substitute(s string, data map[string]interface{}) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		key := tokenPattern.FindStringSubmatch(token)[1]
		val, ok := data[key]
		if !ok || val == nil {
			return token
		}
		return Format(val)
	})
}

// Truthy reports whether a value enables a conditional block.
// nil, blank strings, empty collections, false and numeric zero are falsy.
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case bool:
		return t
	case []string:
		return len(t) > 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}

// Format renders a value the way it appears in a prompt.
func Format(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case []string:
		return strings.Join(t, ", ")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts = append(parts, Format(rv.Index(i).Interface()))
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
