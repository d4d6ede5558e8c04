package builder

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/fatih/color"

	"boulder/pkg/recipe"
)

// tag identifies the (target, pgo?, step) a line of output belongs to,
// for the "│<pgo>│<abbrev>│ <line>" annotation of spec.md §4.10.
type tag struct {
	Target string
	IsPgo  bool
	Step   recipe.Step
}

var tagStyle = color.New(color.FgCyan, color.Bold)

func (t tag) prefix() string {
	pgo := ""
	if t.IsPgo {
		pgo = "│"
	}
	return tagStyle.Sprintf("│%s│%s│", pgo, t.Step.Abbrev()) + " "
}

// streamLines attaches stdout/stderr pipes to cmd, starts two reader
// goroutines that prefix and forward every line to out, and returns a
// function that waits for both to finish. Read errors terminate a
// reader thread silently and are never surfaced — annotation is
// best-effort per spec.md §4.10.
func streamLines(cmd *exec.Cmd, t tag, out io.Writer) (func(), error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("builder: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("builder: stderr pipe: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	var mu sync.Mutex
	pump := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			mu.Lock()
			fmt.Fprintln(out, t.prefix()+scanner.Text())
			mu.Unlock()
		}
		// scanner.Err() is ignored: a dying pipe at child exit is routine,
		// not a build failure.
	}

	go pump(stdout)
	go pump(stderr)

	return wg.Wait, nil
}

// defaultLogWriter is where BuildRunner tees annotated child output,
// matching the teacher's habit of writing progress straight to the
// host's own stdout rather than buffering it.
var defaultLogWriter io.Writer = os.Stdout
