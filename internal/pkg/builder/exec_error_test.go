package builder

import (
	"os/exec"
	"syscall"
	"testing"

	"gotest.tools/v3/assert"
)

func TestClassifyExitCode(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "exit 7")
	err := classifyExit(cmd.Run())

	var execErr *ExecError
	assert.Assert(t, errorsAs(err, &execErr))
	assert.Equal(t, execErr.Kind, ExecCode)
	assert.Equal(t, execErr.Code, 7)
}

func TestClassifyExitSignal(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "kill -TERM $$; sleep 1")
	err := classifyExit(cmd.Run())

	var execErr *ExecError
	assert.Assert(t, errorsAs(err, &execErr))
	assert.Equal(t, execErr.Kind, ExecSignal)
	assert.Equal(t, execErr.Signal, syscall.SIGTERM)
}

func TestClassifyExitSuccess(t *testing.T) {
	cmd := exec.Command("/bin/sh", "-c", "exit 0")
	assert.NilError(t, classifyExit(cmd.Run()))
}

// errorsAs is a tiny local wrapper so this file doesn't need to import
// "errors" just for the two tests above that check the error type.
func errorsAs(err error, target **ExecError) bool {
	execErr, ok := err.(*ExecError)
	if !ok {
		return false
	}
	*target = execErr
	return true
}
