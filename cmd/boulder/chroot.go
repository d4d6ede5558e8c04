package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"boulder/internal/pkg/builder"
	"boulder/internal/pkg/job"
	"boulder/internal/pkg/sandbox"
	"boulder/pkg/recipe"
)

// chrootCmd enters the sandbox for a recipe's first planned job without
// running any of its steps, dropping straight into an interactive
// shell — grounded on the load-recipe/load-macros/build-paths/exec
// shape of the teacher's own chroot command.
var chrootCmd = &cobra.Command{
	Use:   "chroot <recipe>",
	Short: "Enter an interactive shell inside the build sandbox without running any steps",
	Args:  cobra.ExactArgs(1),
	RunE:  runChroot,
}

func init() {
	addCommonFlags(chrootCmd)
}

func runChroot(cmd *cobra.Command, args []string) error {
	recipePath := args[0]

	env, err := loadEnv()
	if err != nil {
		return err
	}

	r, err := recipe.Load(recipePath)
	if err != nil {
		return fmt.Errorf("loading recipe: %w", err)
	}

	macros, err := job.LoadMacros(macrosDir)
	if err != nil {
		return fmt.Errorf("loading macros: %w", err)
	}

	plans := job.NewPlanner(env, macros).Plan(r)
	if len(plans) == 0 {
		return recipe.ErrNoBuildTargets
	}

	first := plans[0].Jobs[0]
	shellJob := &job.Job{
		Target:   first.Target,
		PgoStage: first.PgoStage,
		BuildDir: first.BuildDir,
		WorkDir:  first.WorkDir,
		Steps: []job.StepScript{{
			Step: recipe.Setup,
			Script: recipe.Script{
				Commands: []recipe.Command{{Break: &recipe.Breakpoint{Exit: true}}},
			},
		}},
	}

	sb := sandbox.New(populateRoot)
	runner := builder.NewRunner(sb, r)

	paths := sandbox.Paths{
		RootDir:          filepath.Join(env.RootDir, "root"),
		ProjectDir:       filepath.Dir(recipePath),
		GuestProjectPath: "/project",
	}

	return runner.Run(paths, r.Options.Networking, []job.TargetPlan{
		{Target: plans[0].Target, Jobs: []*job.Job{shellJob}},
	})
}
