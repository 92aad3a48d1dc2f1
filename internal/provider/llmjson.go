// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rune Contributors

package provider

import (
	"encoding/json"
	"strings"
)

// ParseJSON extracts a JSON object from raw LLM output, tolerating
// markdown code fences and preamble text. Tries in order: strip fences
// then decode; decode the raw string; decode the substring between the
// first '{' and the last '}'. Returns an empty map when nothing decodes.
func ParseJSON(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}

	text := raw
	if strings.HasPrefix(strings.TrimSpace(text), "```") {
		var kept []string
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		text = strings.Join(kept, "\n")
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &out); err == nil {
			return out
		}
	}

	return map[string]any{}
}

// JSONString reads a string field from a parsed LLM object.
func JSONString(obj map[string]any, key string) string {
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

// JSONBool reads a bool field, returning fallback when absent or mistyped.
func JSONBool(obj map[string]any, key string, fallback bool) bool {
	if v, ok := obj[key].(bool); ok {
		return v
	}
	return fallback
}

// JSONStrings reads a string-array field, dropping non-string elements.
func JSONStrings(obj map[string]any, key string) []string {
	raw, ok := obj[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
