package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"boulder/internal/pkg/builder"
	"boulder/internal/pkg/job"
	"boulder/internal/pkg/sandbox"
	"boulder/pkg/recipe"
)

var buildCmd = &cobra.Command{
	Use:   "build <recipe>",
	Short: "Build a recipe inside a sandbox",
	Args:  cobra.ExactArgs(1),
	RunE:  runBuild,
}

func init() {
	addCommonFlags(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	recipePath := args[0]

	env, err := loadEnv()
	if err != nil {
		return err
	}

	r, err := recipe.Load(recipePath)
	if err != nil {
		return fmt.Errorf("loading recipe: %w", err)
	}

	if err := fetchUpstreams(context.Background(), env, r); err != nil {
		return err
	}

	macros, err := job.LoadMacros(macrosDir)
	if err != nil {
		return fmt.Errorf("loading macros: %w", err)
	}

	plans := job.NewPlanner(env, macros).Plan(r)
	if len(plans) == 0 {
		return recipe.ErrNoBuildTargets
	}

	sb := sandbox.New(populateRoot)
	runner := builder.NewRunner(sb, r)

	paths := sandbox.Paths{
		RootDir:          filepath.Join(env.RootDir, "root"),
		ProjectDir:       filepath.Dir(recipePath),
		GuestProjectPath: "/project",
	}

	return runner.Run(paths, r.Options.Networking, plans)
}
