// Package sandbox models the isolated execution context BuildRunner
// runs steps inside: a populated chroot, an optional network namespace,
// and process-group/terminal-foreground ownership (spec.md §4.8). The
// contract is deliberately narrow — concrete namespace/bind-mount
// population is an injected collaborator, left out of scope exactly as
// spec.md §1 "Out of scope" describes.
package sandbox

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Paths locates the pieces a populated sandbox root needs: the chroot
// root itself, and where the project directory is bind-mounted for
// guest processes to see.
type Paths struct {
	RootDir          string
	ProjectDir       string
	GuestProjectPath string
}

// Populator prepares paths for entry: constructing the chroot from
// repository packages, arranging bind mounts, and bringing up (or
// withholding) networking. The concrete mechanism is an external
// collaborator; Sandbox only sequences it around foreground claiming.
type Populator func(paths Paths, networkingAllowed bool) error

// Sandbox enters an execution context per spec.md §4.8: it becomes a
// process-group leader, claims the controlling terminal's foreground
// process group, runs body, and restores the prior foreground process
// group on every exit path.
type Sandbox struct {
	Populate Populator
}

// New returns a Sandbox that runs populate (if non-nil) before handing
// control to Exec's body.
func New(populate Populator) *Sandbox {
	return &Sandbox{Populate: populate}
}

// Exec enters paths, claims process-group leadership and terminal
// foreground, runs body, and restores the terminal's prior foreground
// process group before returning body's error unchanged.
func (s *Sandbox) Exec(paths Paths, networkingAllowed bool, body func() error) error {
	if s.Populate != nil {
		if err := s.Populate(paths, networkingAllowed); err != nil {
			return fmt.Errorf("sandbox: populating root: %w", err)
		}
	}

	restore, err := claimForeground()
	if err != nil {
		return fmt.Errorf("sandbox: claiming foreground: %w", err)
	}
	defer restore()

	return body()
}

// ReclaimForeground re-designates the calling process's own process
// group as the controlling terminal's foreground group. BuildRunner
// calls this after an interactive breakpoint shell — which has its own
// foreground claim while running — exits, to take terminal foreground
// back for the step loop. A missing controlling terminal (ENOTTY) is
// tolerated silently, same as claimForeground.
func ReclaimForeground() error {
	ttyFd := int(os.Stdin.Fd())

	if _, err := unix.IoctlGetInt(ttyFd, unix.TIOCGPGRP); err != nil {
		return nil
	}

	pgid, err := unix.Getpgid(0)
	if err != nil {
		return fmt.Errorf("getpgid: %w", err)
	}

	return unix.IoctlSetPointerInt(ttyFd, unix.TIOCSPGRP, pgid)
}

// claimForeground makes the calling process its own process-group
// leader and designates that group as the controlling terminal's
// foreground group, returning a function that restores the terminal's
// prior foreground group. When stdin has no controlling terminal
// (ENOTTY — the common case under test and CI) foreground claiming is
// skipped and restore is a no-op, since there is nothing to restore.
func claimForeground() (restore func(), err error) {
	ttyFd := int(os.Stdin.Fd())

	origPgrp, err := unix.IoctlGetInt(ttyFd, unix.TIOCGPGRP)
	if err != nil {
		return func() {}, nil
	}

	if err := unix.Setpgid(0, 0); err != nil {
		return nil, fmt.Errorf("setpgid: %w", err)
	}

	pgid, err := unix.Getpgid(0)
	if err != nil {
		return nil, fmt.Errorf("getpgid: %w", err)
	}

	if err := unix.IoctlSetPointerInt(ttyFd, unix.TIOCSPGRP, pgid); err != nil {
		return nil, fmt.Errorf("claiming terminal foreground: %w", err)
	}

	return func() {
		_ = unix.IoctlSetPointerInt(ttyFd, unix.TIOCSPGRP, origPgrp)
	}, nil
}
