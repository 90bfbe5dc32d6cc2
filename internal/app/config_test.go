package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	valid := Config{GraphPaths: []string{"g.hcl"}, LogFormat: "json", LogLevel: "info", WorkerCount: 2}

	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no graph", func(c *Config) { c.GraphPaths = nil }, "GraphPaths: is required"},
		{"empty graph path", func(c *Config) { c.GraphPaths = []string{""} }, "is required"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LogFormat: must be one of: text json"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "LogLevel: must be one of"},
		{"no workers", func(c *Config) { c.WorkerCount = 0 }, "WorkerCount: must be at least 1"},
		{"port out of range", func(c *Config) { c.HealthcheckPort = 70000 }, "HealthcheckPort: must be at most 65535"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)

			got, err := NewConfig(cfg)

			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, cfg, *got)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
