package llm

import "strings"

// ExtractJSON pulls a JSON object out of a completion. Models often wrap
// JSON in markdown fences or surround it with prose; callers get the raw
// object text to unmarshal, or an empty string if none is found.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	// Strip a markdown fence if the whole reply is fenced.
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	if start < 0 {
		return ""
	}

	// Scan for the matching close brace, respecting strings and escapes.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(content); i++ {
		ch := content[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}
