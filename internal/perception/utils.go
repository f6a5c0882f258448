package perception

import "strings"

// requiresJSONOutput checks if the prompt asks for a JSON answer, so
// providers that support it can switch on a JSON response mode.
func requiresJSONOutput(systemPrompt, userPrompt string) bool {
	markers := []string{
		"JSON array",
		"JSON object",
		"valid JSON",
		"application/json",
	}
	combined := systemPrompt + "\n" + userPrompt
	for _, marker := range markers {
		if strings.Contains(combined, marker) {
			return true
		}
	}
	return false
}

// StripCodeFences removes a surrounding markdown code fence (```json ...```)
// from an LLM answer. Text outside a fence is returned trimmed.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "[{") {
			s = s[nl+1:]
		}
	} else if strings.HasPrefix(strings.ToLower(s), "json") {
		s = s[len("json"):]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
