//go:build !windows

package gfzrnx

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no shell")
	}
	ctx := context.Background()

	stdout, stderr, err := ExecRunner{}.Run(ctx, "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(stdout))
	assert.Equal(t, "err\n", string(stderr))

	_, _, err = ExecRunner{}.Run(ctx, "sh", "-c", "echo failed >&2; exit 3")
	exitErr, ok := AsExitError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "failed\n", exitErr.Stderr)
	assert.Equal(t, []string{"sh", "-c", "echo failed >&2; exit 3"}, exitErr.Args)

	_, _, err = ExecRunner{}.Run(ctx, "/nonexistent/gfzrnx")
	assert.Error(t, err)
	_, ok = AsExitError(err)
	assert.False(t, ok)

	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, _, err = ExecRunner{}.Run(ctx, "sh", "-c", "exec sleep 5")
	assert.ErrorContains(t, err, "deadline exceeded")
}
