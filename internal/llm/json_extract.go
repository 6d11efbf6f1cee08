package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fencedBlock matches a markdown code fence with an optional language tag.
var fencedBlock = regexp.MustCompile("(?s)```(\\w*)\\s*\\n(.+?)\\n```")

// ExtractJSON pulls a JSON value out of a model response that may wrap it in
// markdown fences or surrounding prose. Fenced json blocks win; otherwise the
// first balanced object or array in the text is used.
func ExtractJSON(response string) (string, error) {
	for _, match := range fencedBlock.FindAllStringSubmatch(response, -1) {
		lang := strings.ToLower(match[1])
		if lang != "" && lang != "json" {
			continue
		}
		content := strings.TrimSpace(match[2])
		if json.Valid([]byte(content)) {
			return content, nil
		}
	}

	if s, ok := balancedJSON(response); ok {
		return s, nil
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// balancedJSON scans for the first '{' or '[' and returns the substring up to
// its matching close bracket, string-literal aware.
func balancedJSON(s string) (string, bool) {
	start := -1
	var open, closeCh byte
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			start = i
			open = s[i]
			closeCh = '}'
			if open == '[' {
				closeCh = ']'
			}
			break
		}
	}
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closeCh:
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				return "", false
			}
		}
	}
	return "", false
}
