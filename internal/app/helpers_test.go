package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/opgraph/internal/registry"
	"github.com/vk/opgraph/internal/testutil"
)

// writeGraph stores src under name in a fresh temp dir and returns the path.
func writeGraph(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

// setupApp creates an app writing logs and printed artifacts to one buffer.
func setupApp(t *testing.T, cfg Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 4
	}
	valid, err := NewConfig(cfg)
	require.NoError(t, err)

	buf := &testutil.SafeBuffer{}
	a := NewApp(buf, valid, modules...)
	t.Cleanup(func() {
		if os.Getenv("OPGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})
	return a, buf
}
