// Package builder implements BuildRunner, the top-level orchestrator
// that drives a planned set of jobs through a Sandbox: entering the
// sandbox, iterating targets/jobs/steps/commands, running shell
// fragments and interactive breakpoints, and annotating output
// (spec.md §4.9, §4.10).
package builder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"

	"boulder/internal/pkg/job"
	"boulder/internal/pkg/sandbox"
	"boulder/pkg/recipe"
)

// errExitBreakpoint unwinds the whole target/job/step loop without
// failing the build: it is how a Break{Exit:true} command's "end the
// build successfully once the shell exits" behavior (spec.md §4.9, part
// 5) is threaded back up through runStep/runJob/runPlans.
var errExitBreakpoint = errors.New("builder: exit breakpoint reached")

// Runner drives recipe.Recipe, resolved into job.TargetPlans, through a
// sandbox.Sandbox.
type Runner struct {
	Sandbox *sandbox.Sandbox
	Recipe  *recipe.Recipe
	Out     io.Writer
}

// NewRunner returns a Runner writing annotated output to the host's
// stdout.
func NewRunner(sb *sandbox.Sandbox, r *recipe.Recipe) *Runner {
	return &Runner{Sandbox: sb, Recipe: r, Out: defaultLogWriter}
}

// Run enters the sandbox and executes plans in order (spec.md §4.9,
// parts 1-3).
func (b *Runner) Run(paths sandbox.Paths, networkingAllowed bool, plans []job.TargetPlan) error {
	err := b.Sandbox.Exec(paths, networkingAllowed, func() error {
		return b.runPlans(plans)
	})
	if errors.Is(err, errExitBreakpoint) {
		return nil
	}
	return err
}

func (b *Runner) runPlans(plans []job.TargetPlan) error {
	for _, plan := range plans {
		for _, j := range plan.Jobs {
			if err := b.runJob(plan.Target, j); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *Runner) runJob(target recipe.BuildTarget, j *job.Job) error {
	if err := os.RemoveAll(j.WorkDir); err != nil {
		return fmt.Errorf("builder: clearing work dir %s: %w", j.WorkDir, err)
	}
	if err := os.MkdirAll(j.WorkDir, 0o755); err != nil {
		return fmt.Errorf("builder: creating work dir %s: %w", j.WorkDir, err)
	}
	if err := os.MkdirAll(j.BuildDir, 0o755); err != nil {
		return fmt.Errorf("builder: creating build dir %s: %w", j.BuildDir, err)
	}
	if j.PgoStage != nil {
		pgoDir := j.BuildDir + "-pgo"
		if err := os.MkdirAll(pgoDir, 0o755); err != nil {
			return fmt.Errorf("builder: creating pgo dir %s: %w", pgoDir, err)
		}
	}

	for _, step := range recipe.Steps {
		script, ok := j.StepScript(step)
		if !ok {
			continue
		}
		if err := b.runStep(target, j, step, script); err != nil {
			return err
		}
	}
	return nil
}

func (b *Runner) runStep(target recipe.BuildTarget, j *job.Job, step recipe.Step, script recipe.Script) error {
	t := tag{Target: target.String(), IsPgo: j.PgoStage != nil, Step: step}

	for _, cmd := range script.Commands {
		if cmd.Break != nil {
			if err := b.runBreak(target, step, j, script, *cmd.Break); err != nil {
				return err
			}
			if cmd.Break.Exit {
				return errExitBreakpoint
			}
			continue
		}

		if err := b.runContent(j, t, cmd.Content); err != nil {
			return err
		}
	}
	return nil
}

// runContent writes a Content command to a unique script path inside
// the job's work directory and executes it via /bin/sh with a minimal
// environment, tee'd and annotated, forwarding host SIGINTs to the
// child's process group (spec.md §4.9, part 4).
func (b *Runner) runContent(j *job.Job, t tag, content string) error {
	scriptPath := filepath.Join(j.WorkDir, uuid.NewString()+".sh")
	if err := os.WriteFile(scriptPath, []byte(content), 0o755); err != nil {
		return fmt.Errorf("builder: writing script %s: %w", scriptPath, err)
	}
	defer os.Remove(scriptPath)

	cmd := exec.Command("/bin/sh", scriptPath)
	cmd.Env = []string{"HOME=" + j.BuildDir, "PATH=/usr/bin:/usr/sbin"}
	cmd.Dir = resolveCwd(j)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	join, err := streamLines(cmd, t, b.Out)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("builder: starting %s: %w", scriptPath, err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	done := make(chan struct{})
	go forwardSignal(sigCh, done, cmd.Process.Pid)

	waitErr := cmd.Wait()
	close(done)
	signal.Stop(sigCh)
	join()

	if waitErr != nil {
		return classifyExit(waitErr)
	}
	return nil
}

func forwardSignal(sigCh chan os.Signal, done chan struct{}, pgid int) {
	for {
		select {
		case <-sigCh:
			_ = syscall.Kill(-pgid, syscall.SIGINT)
		case <-done:
			return
		}
	}
}

// runBreak synthesizes the breakpoint .profile, spawns an interactive
// login shell inheriting the terminal, waits for it, and re-claims
// terminal foreground (spec.md §4.9, part 5).
func (b *Runner) runBreak(target recipe.BuildTarget, step recipe.Step, j *job.Job, script recipe.Script, bp recipe.Breakpoint) error {
	profilePath := filepath.Join(j.BuildDir, ".profile")
	if err := os.WriteFile(profilePath, []byte(buildProfile(script)), 0o644); err != nil {
		return fmt.Errorf("builder: writing %s: %w", profilePath, err)
	}

	if b.Recipe != nil {
		profileKey := b.Recipe.BuildTargetProfileKey(target)
		if line, ok := breakpointLine(b.Recipe.Source, profileKey, step, bp); ok {
			mode := "continue"
			if bp.Exit {
				mode = "exit"
			}
			fmt.Fprintf(b.Out, "Breakpoint at line %d (%s)\n", line, mode)
		}
	}

	cmd := exec.Command("/bin/bash", "--login")
	cmd.Env = []string{"HOME=" + j.BuildDir, "PATH=/usr/bin:/usr/sbin", "TERM=xterm-256color"}
	cmd.Dir = j.BuildDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	// The breakpoint shell's own exit status never fails the build — it
	// is an operator session, not a step command.
	_ = cmd.Run()

	return sandbox.ReclaimForeground()
}

// resolveCwd picks the job's work directory if it exists, else its
// build directory (spec.md §4.9, part 4).
func resolveCwd(j *job.Job) string {
	if info, err := os.Stat(j.WorkDir); err == nil && info.IsDir() {
		return j.WorkDir
	}
	return j.BuildDir
}
