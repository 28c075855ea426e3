package gfzrnx

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/juju/errors"
)

// ExitError is returned if gfzrnx terminates with a non-zero exit code.
type ExitError struct {
	Args   []string // Command line, starting with the program.
	Code   int      // Exit code, -1 if killed by a signal.
	Stderr string
}

func (e *ExitError) Error() string {
	prog := DefaultPath
	if len(e.Args) > 0 {
		prog = e.Args[0]
	}
	msg := fmt.Sprintf("%s: exit status %d", prog, e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// AsExitError returns the ExitError behind err, if any.
func AsExitError(err error) (*ExitError, bool) {
	e, ok := errors.Cause(err).(*ExitError)
	return e, ok
}

// waitDelay bounds the wait for output pipes after the context is done.
const waitDelay = 5 * time.Second

// ExecRunner runs programs with os/exec.
//
// The child runs in its own process group, so that an interrupt of the
// terminal does not stop gfzrnx in the middle of writing a file.
// Cancelling the context kills it.
type ExecRunner struct{}

// Run runs the program and waits for it to finish.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), nil
	}
	if ctx.Err() != nil {
		return stdout.Bytes(), stderr.Bytes(), errors.Annotatef(ctx.Err(), "run %s", name)
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return stdout.Bytes(), stderr.Bytes(), &ExitError{
			Args:   append([]string{name}, args...),
			Code:   exitErr.ExitCode(),
			Stderr: stderr.String(),
		}
	}
	return stdout.Bytes(), stderr.Bytes(), errors.Annotatef(err, "run %s", name)
}
