package builder

import (
	"fmt"
	"sort"
	"strings"

	"boulder/pkg/recipe"
)

// buildProfile assembles the synthesized .profile a breakpoint shell is
// launched with (spec.md §4.9, part 5): filtered environment lines from
// the script, exported action functions named a_<id>, and exported
// definition variables named d_<id>.
func buildProfile(script recipe.Script) string {
	var out strings.Builder

	for _, line := range strings.Split(script.Env, "\n") {
		if isFilteredProfileLine(line) {
			continue
		}
		out.WriteString(line)
		out.WriteString("\n")
	}

	ids := sortedKeys(script.ResolvedActions)
	for _, id := range ids {
		fmt.Fprintf(&out, "a_%s () {\n%s\n}\nexport -f a_%s\n", id, script.ResolvedActions[id], id)
	}

	defIDs := sortedKeys(script.ResolvedDefinitions)
	for _, id := range defIDs {
		fmt.Fprintf(&out, "d_%s=%q\nexport d_%s\n", id, script.ResolvedDefinitions[id], id)
	}

	// A fixed prompt so an operator (or a test driving the shell over a
	// pty) has something deterministic to wait on, independent of
	// whatever PS1 the shell would otherwise pick up.
	out.WriteString("PS1='boulder-break$ '\n")

	return out.String()
}

func isFilteredProfileLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "#!"):
		return true
	case strings.HasPrefix(trimmed, "set -"):
		return true
	case strings.HasPrefix(trimmed, "TERM="):
		return true
	default:
		return false
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
