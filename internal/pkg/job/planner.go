// Package job expands a parsed recipe into the ordered sequence of Jobs
// BuildRunner executes: one job per (build target, PGO stage) pair, each
// carrying its resolved, macro-expanded step scripts and its build/work
// directory pair (spec.md §4.7).
package job

import (
	"path/filepath"

	"boulder/internal/pkg/buildenv"
	"boulder/pkg/recipe"
)

// TargetPlan groups the jobs produced for one build target: a single
// job when the recipe has no PGO declaration, or three (stage1, stage2,
// use) in that order when it does (spec.md §8 scenario S7).
type TargetPlan struct {
	Target recipe.BuildTarget
	Jobs   []*Job
}

// Planner expands recipes into TargetPlans against a fixed Env and
// Macros table.
type Planner struct {
	Env    buildenv.Env
	Macros *Macros
}

// NewPlanner returns a Planner using env for directory layout and
// macros for action/definition/stage-flag resolution.
func NewPlanner(env buildenv.Env, macros *Macros) *Planner {
	return &Planner{Env: env, Macros: macros}
}

// Plan expands r into one TargetPlan per recipe.BuildTargets(), each
// holding its ordered Jobs.
func (p *Planner) Plan(r *recipe.Recipe) []TargetPlan {
	targets := r.BuildTargets()
	plans := make([]TargetPlan, 0, len(targets))

	for _, target := range targets {
		plans = append(plans, TargetPlan{
			Target: target,
			Jobs:   p.planTarget(r, target),
		})
	}

	return plans
}

func (p *Planner) planTarget(r *recipe.Recipe, target recipe.BuildTarget) []*Job {
	if r.Pgo == nil || !r.Pgo.Enabled {
		return []*Job{p.buildJob(r, target, nil)}
	}

	stages := []recipe.PgoStage{recipe.Stage1, recipe.Stage2, recipe.StageUse}
	jobs := make([]*Job, 0, len(stages))
	for i := range stages {
		stage := stages[i]
		jobs = append(jobs, p.buildJob(r, target, &stage))
	}
	return jobs
}

func (p *Planner) buildJob(r *recipe.Recipe, target recipe.BuildTarget, stage *recipe.PgoStage) *Job {
	buildDir, workDir := p.directories(target, stage)

	steps := make([]StepScript, 0, len(recipe.Steps))
	for _, step := range recipe.Steps {
		if step == recipe.Prepare {
			steps = append(steps, StepScript{
				Step:   step,
				Script: prepareScript(r.Upstreams, p.Env),
			})
			continue
		}

		raw := r.StepScript(target, step)
		if raw == "" {
			continue
		}
		steps = append(steps, StepScript{
			Step:   step,
			Script: resolveScript(raw, stage, p.Macros),
		})
	}

	return &Job{
		Target:   target,
		PgoStage: stage,
		BuildDir: buildDir,
		WorkDir:  workDir,
		Steps:    steps,
	}
}

// directories deterministically assigns the build/work directory pair
// for a (target, stage) job: <root>/<target>/build and
// <root>/<target>/work for the plain case, with PGO stages 1 and 2
// moved under a per-stage <root>/<target>/pgo-<stage> directory so they
// never collide with the final "use" stage's output (spec.md §4.7).
func (p *Planner) directories(target recipe.BuildTarget, stage *recipe.PgoStage) (string, string) {
	base := filepath.Join(p.Env.RootDir, target.String())
	if stage != nil && *stage != recipe.StageUse {
		base = filepath.Join(base, "pgo-"+stage.String())
	}
	return filepath.Join(base, "build"), filepath.Join(base, "work")
}
