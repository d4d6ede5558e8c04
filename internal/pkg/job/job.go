package job

import (
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"

	"boulder/pkg/recipe"
)

// StepScript pairs a build step with its resolved script, preserving the
// canonical step order (recipe.Steps) without relying on Go map
// iteration order.
type StepScript struct {
	Step   recipe.Step
	Script recipe.Script
}

// Job is one materialized unit of work: a build target (possibly at a
// specific PGO stage), its build/work directory pair, and the ordered
// step scripts to run inside them.
type Job struct {
	Target   recipe.BuildTarget
	PgoStage *recipe.PgoStage
	BuildDir string
	WorkDir  string
	Steps    []StepScript
}

// StepScript looks up the resolved script for step, if the job has one.
func (j *Job) StepScript(step recipe.Step) (recipe.Script, bool) {
	for _, s := range j.Steps {
		if s.Step == step {
			return s.Script, true
		}
	}
	return recipe.Script{}, false
}

var (
	actionRef     = regexp.MustCompile(`%\{([a-zA-Z0-9_]+)\}`)
	definitionRef = regexp.MustCompile(`\$\{([a-zA-Z0-9_]+)\}`)
	breakMarker   = regexp.MustCompile(`^%break(\s+exit)?\s*$`)
)

// resolveScript expands action (%{id}) and definition (${id}) markers
// against macros, scans for %break section markers the same way
// deffile's %-prefixed section headers are scanned, and splits the
// result into an ordered Content/Break command sequence.
func resolveScript(raw string, stage *recipe.PgoStage, macros *Macros) recipe.Script {
	resolvedActions := map[string]string{}
	resolvedDefinitions := map[string]string{}
	depSet := map[string]struct{}{}

	expanded := actionRef.ReplaceAllStringFunc(raw, func(match string) string {
		id := actionRef.FindStringSubmatch(match)[1]
		body, ok := macros.Actions[id]
		if !ok {
			return match
		}
		resolvedActions[id] = body
		for _, dep := range macros.ActionDependencies[id] {
			depSet[dep] = struct{}{}
		}
		return "( " + body + " )"
	})

	expanded = definitionRef.ReplaceAllStringFunc(expanded, func(match string) string {
		id := definitionRef.FindStringSubmatch(match)[1]
		value, ok := macros.Definitions[id]
		if !ok {
			return match
		}
		resolvedDefinitions[id] = value
		return value
	})

	var env strings.Builder
	env.WriteString("#!/bin/sh\nset -eu\n")
	if stage != nil {
		if flags, ok := macros.StageFlags[*stage]; ok {
			env.WriteString(flags)
			env.WriteString("\n")
		}
	}

	commands := scanCommands(expanded)

	deps := lo.Keys(depSet)
	sort.Strings(deps)

	return recipe.Script{
		Env:                 env.String(),
		Commands:            commands,
		ResolvedActions:     resolvedActions,
		ResolvedDefinitions: resolvedDefinitions,
		Dependencies:        deps,
	}
}

// scanCommands walks raw line by line, accumulating shell text into
// Content commands and splitting on %break markers into Break commands.
// Line numbers are 0-indexed and count only lines within this script
// body; breakpoint line resolution adds them to the step key's line in
// the recipe source and the block-scalar offset.
func scanCommands(raw string) []recipe.Command {
	lines := strings.Split(raw, "\n")

	var commands []recipe.Command
	var buf strings.Builder

	flush := func() {
		content := buf.String()
		if strings.TrimSpace(content) != "" {
			commands = append(commands, recipe.Command{Content: content})
		}
		buf.Reset()
	}

	for i, line := range lines {
		if m := breakMarker.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			commands = append(commands, recipe.Command{
				Break: &recipe.Breakpoint{
					LineNum: i,
					Exit:    strings.TrimSpace(m[1]) == "exit",
				},
			})
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()

	return commands
}
