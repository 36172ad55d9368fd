package core

// extractFirstJSON finds the first balanced top-level JSON object in a string.
// Models occasionally wrap their JSON in prose or code fences; this strips it.
func extractFirstJSON(s string) string {
	return extractBalanced(s, '{', '}')
}

// extractFirstJSONArray finds the first balanced top-level JSON array.
func extractFirstJSONArray(s string) string {
	return extractBalanced(s, '[', ']')
}

func extractBalanced(s string, open, close rune) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, ch := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return s[start : i+1]
			}
		}
	}
	return s
}
