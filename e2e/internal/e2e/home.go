// Package e2e holds small helpers shared by boulder's end-to-end tests:
// tests that exec a built boulder binary under a pty and drive it
// interactively, the same shape as the teacher's own e2e suite but
// scoped to boulder's breakpoint shell instead of container builds.
package e2e

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

// SetupHome creates an isolated HOME directory for one e2e test and
// points HOME at it for the duration of the test, restoring the
// previous value on cleanup. Interactive breakpoint shells read
// .profile and .bash_history relative to HOME, so tests must not share
// a real developer's home directory.
func SetupHome(t *testing.T) string {
	t.Helper()

	home := filepath.Join(t.TempDir(), "home")
	if err := os.Mkdir(home, 0o700); err != nil {
		err = errors.Wrapf(err, "creating temporary home directory at %s", home)
		t.Fatalf("failed to create temporary home: %+v", err)
	}

	previous, hadPrevious := os.LookupEnv("HOME")
	if err := os.Setenv("HOME", home); err != nil {
		err = errors.Wrap(err, "setting HOME for e2e test")
		t.Fatalf("failed to set HOME: %+v", err)
	}
	t.Cleanup(func() {
		if hadPrevious {
			os.Setenv("HOME", previous)
		} else {
			os.Unsetenv("HOME")
		}
	})

	return home
}
