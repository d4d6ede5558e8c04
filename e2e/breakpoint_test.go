// Package e2e_test drives a built boulder binary through an
// interactive breakpoint shell over a real pty, the same
// pty+go-expect pairing the teacher repo uses for its own interactive
// console tests, scoped here to boulder's %break behavior instead of
// container shell access.
package e2e_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	expect "github.com/Netflix/go-expect"

	"boulder/e2e/internal/e2e"
	"boulder/pkg/recipe"
)

func buildBoulderBinary(t *testing.T) string {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "boulder")
	cmd := exec.Command("go", "build", "-o", bin, "./cmd/boulder")
	cmd.Dir = repoRoot(t)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("building boulder binary: %v\n%s", err, out)
	}
	return bin
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	return filepath.Dir(wd)
}

// TestBreakpointShellRunsActionAndResumes exercises a full build: a
// Content command runs, a %break suspends into an interactive login
// shell where the synthesized a_<id> action function is callable, and
// exiting the shell resumes the remaining Content command.
func TestBreakpointShellRunsActionAndResumes(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a real binary and drives a pty; skipped in -short")
	}

	e2e.SetupHome(t)
	bin := buildBoulderBinary(t)

	workspace := t.TempDir()
	recipePath := filepath.Join(workspace, "recipe.yaml")
	marker := filepath.Join(workspace, "resumed.txt")

	recipeYAML := "architectures: [\"" + string(recipe.HostArchitecture()) + "\"]\n" +
		"build: |\n" +
		"  echo before-break\n" +
		"  %{greet}\n" +
		"  %break\n" +
		"  echo after-break >> " + marker + "\n"
	if err := os.WriteFile(recipePath, []byte(recipeYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	macrosDir := filepath.Join(workspace, "macros")
	if err := os.MkdirAll(macrosDir, 0o755); err != nil {
		t.Fatal(err)
	}
	macrosYAML := "actions:\n  greet: \"echo hello-from-action\"\n"
	if err := os.WriteFile(filepath.Join(macrosDir, "00-base.yaml"), []byte(macrosYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	envPath := filepath.Join(workspace, "env.toml")
	envTOML := "root_dir = \"" + filepath.Join(workspace, "root") + "\"\n" +
		"cache_dir = \"" + filepath.Join(workspace, "cache") + "\"\n"
	if err := os.WriteFile(envPath, []byte(envTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := expect.NewConsole(expect.WithStdout(os.Stdout))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	cmd := exec.Command(bin, "build", recipePath, "--env", envPath, "--macros", macrosDir)
	cmd.Stdin = c.Tty()
	cmd.Stdout = c.Tty()
	cmd.Stderr = c.Tty()

	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}

	if _, err := c.ExpectString("boulder-break$"); err != nil {
		t.Fatalf("waiting for breakpoint shell prompt: %v", err)
	}
	if _, err := c.SendLine("a_greet"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.ExpectString("hello-from-action"); err != nil {
		t.Fatalf("waiting for action output: %v", err)
	}
	if _, err := c.ExpectString("boulder-break$"); err != nil {
		t.Fatalf("waiting for prompt before exit: %v", err)
	}
	if _, err := c.SendLine("exit"); err != nil {
		t.Fatal(err)
	}

	if err := cmd.Wait(); err != nil {
		t.Fatalf("boulder build exited with error: %v", err)
	}

	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("expected command after breakpoint to have run: %v", err)
	}
}
