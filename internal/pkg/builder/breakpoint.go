package builder

import "boulder/pkg/recipe"

// breakpointLine resolves a Breakpoint to a 1-based line number in the
// recipe's original source, for display only (spec.md §4.9,
// "Breakpoint line resolution"). Prepare is never breakable.
func breakpointLine(source string, profileKey *string, step recipe.Step, bp recipe.Breakpoint) (int, bool) {
	stepKey := step.Key()
	if stepKey == "" {
		return 0, false
	}

	lines := splitLines(source)

	start := 0
	if profileKey != nil {
		idx, ok := findProfileHeader(lines, *profileKey)
		if !ok {
			return 0, false
		}
		start = idx
	}

	lineIdx, rest, ok := findStepKeyLine(lines, start, stepKey, profileKey != nil)
	if !ok {
		return 0, false
	}

	blockOffset := 0
	if len(rest) > 0 && (rest[0] == '|' || rest[0] == '>') {
		blockOffset = 1
	}

	return (lineIdx + 1) + blockOffset + bp.LineNum, true
}

func splitLines(source string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			lines = append(lines, source[start:i])
			start = i + 1
		}
	}
	lines = append(lines, source[start:])
	return lines
}

func indentOf(line string) (int, string) {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	return i, line[i:]
}

func hasKeyPrefix(trimmed, key string) (string, bool) {
	prefix := key + ":"
	if len(trimmed) < len(prefix) || trimmed[:len(prefix)] != prefix {
		return "", false
	}
	rest := trimmed[len(prefix):]
	for len(rest) > 0 && rest[0] == ' ' {
		rest = rest[1:]
	}
	return rest, true
}

func findProfileHeader(lines []string, profileKey string) (int, bool) {
	for i, line := range lines {
		indent, trimmed := indentOf(line)
		if indent > 0 {
			if _, ok := hasKeyPrefix(trimmed, profileKey); ok {
				return i, true
			}
		}
	}
	return 0, false
}

func findStepKeyLine(lines []string, start int, stepKey string, indented bool) (int, string, bool) {
	for i := start; i < len(lines); i++ {
		if indented && i == start {
			continue
		}
		indent, trimmed := indentOf(lines[i])
		if indented && indent == 0 {
			continue
		}
		if !indented && indent != 0 {
			continue
		}
		if rest, ok := hasKeyPrefix(trimmed, stepKey); ok {
			return i, rest, true
		}
	}
	return 0, "", false
}
