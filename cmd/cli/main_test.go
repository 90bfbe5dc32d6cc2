package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/opgraph/internal/cli"
	"github.com/vk/opgraph/internal/registry"
	"github.com/vk/opgraph/internal/testutil"
)

// duplicateModule registers the same operator name twice.
type duplicateModule struct{}

func (duplicateModule) Register(r *registry.Registry) {
	r.Register("dup", testutil.NewCounter("dup"))
	r.Register("dup", testutil.NewCounter("dup"))
}

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "main.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`node "A" { operator = "dup" }`), 0o600))
	out := &testutil.SafeBuffer{}

	// --- Act ---
	runErr := run(context.Background(), out, []string{"run", path}, duplicateModule{})

	// --- Assert ---
	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")
	require.Contains(t, runErr.Error(), "application startup panicked")
	require.Contains(t, runErr.Error(), "already registered")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	out := &testutil.SafeBuffer{}
	err := run(context.Background(), out, []string{"-h"})

	require.NoError(t, err, "run() should return a nil error for help")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_ParseError(t *testing.T) {
	t.Parallel()

	out := &testutil.SafeBuffer{}
	err := run(context.Background(), out, []string{"--this-is-not-a-valid-flag"})

	require.Error(t, err, "run() should return an error when argument parsing fails")
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, cli.ExitUsage, exitErr.Code)
	require.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}
