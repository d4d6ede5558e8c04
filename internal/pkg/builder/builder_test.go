package builder_test

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"boulder/internal/pkg/builder"
	"boulder/internal/pkg/job"
	"boulder/internal/pkg/sandbox"
	"boulder/pkg/recipe"
)

func TestRunnerExecutesStepsInOrderAndWritesOutput(t *testing.T) {
	root := t.TempDir()
	buildDir := filepath.Join(root, "build")
	workDir := filepath.Join(root, "work")
	marker := filepath.Join(root, "marker.txt")

	j := &job.Job{
		Target:   recipe.NewNative("x86_64"),
		BuildDir: buildDir,
		WorkDir:  workDir,
		Steps: []job.StepScript{
			{Step: recipe.Build, Script: recipe.Script{
				Commands: []recipe.Command{{Content: "echo build >> " + marker + "\n"}},
			}},
			{Step: recipe.Install, Script: recipe.Script{
				Commands: []recipe.Command{{Content: "echo install >> " + marker + "\n"}},
			}},
		},
	}

	sb := sandbox.New(nil)
	runner := builder.NewRunner(sb, nil)
	runner.Out = discard{}

	err := runner.Run(sandbox.Paths{}, false, []job.TargetPlan{
		{Target: j.Target, Jobs: []*job.Job{j}},
	})
	assert.NilError(t, err)

	contents, err := os.ReadFile(marker)
	assert.NilError(t, err)
	assert.Equal(t, string(contents), "build\ninstall\n")
}

func TestRunnerExitBreakpointEndsBuildSuccessfully(t *testing.T) {
	root := t.TempDir()
	marker := filepath.Join(root, "marker.txt")

	j := &job.Job{
		Target:   recipe.NewNative("x86_64"),
		BuildDir: filepath.Join(root, "build"),
		WorkDir:  filepath.Join(root, "work"),
		Steps: []job.StepScript{
			{Step: recipe.Build, Script: recipe.Script{
				Commands: []recipe.Command{
					{Break: &recipe.Breakpoint{Exit: true}},
					{Content: "echo never >> " + marker + "\n"},
				},
			}},
		},
	}

	sb := sandbox.New(nil)
	runner := builder.NewRunner(sb, nil)
	runner.Out = discard{}

	err := runner.Run(sandbox.Paths{}, false, []job.TargetPlan{
		{Target: j.Target, Jobs: []*job.Job{j}},
	})
	assert.NilError(t, err)

	_, statErr := os.Stat(marker)
	assert.Assert(t, os.IsNotExist(statErr))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }
