package builder

import (
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"boulder/pkg/recipe"
)

func TestBreakpointLineRootProfile(t *testing.T) {
	lines := make([]string, 11)
	for i := range lines {
		lines[i] = "# filler"
	}
	lines = append(lines, "build: |", "  step one", "  step two", "  step three", "  step four")
	source := strings.Join(lines, "\n")

	line, ok := breakpointLine(source, nil, recipe.Build, recipe.Breakpoint{LineNum: 3})
	assert.Assert(t, ok)
	assert.Equal(t, line, 16)
}

func TestBreakpointLineNamedProfile(t *testing.T) {
	source := strings.Join([]string{
		"architectures: [\"x86_64\"]",
		"profiles:",
		"  x86_64->aarch64:",
		"    build: |",
		"      step one",
		"      step two",
	}, "\n")

	key := "x86_64->aarch64"
	line, ok := breakpointLine(source, &key, recipe.Build, recipe.Breakpoint{LineNum: 1})
	assert.Assert(t, ok)
	assert.Equal(t, line, 6)
}

func TestBreakpointLinePrepareNeverBreakable(t *testing.T) {
	_, ok := breakpointLine("build: |\n  x\n", nil, recipe.Prepare, recipe.Breakpoint{LineNum: 0})
	assert.Assert(t, !ok)
}
